package mapping

import (
	"fmt"

	"github.com/syssam/quarry/schema"
)

// Row is a result row: ordered column names and their values. Column
// lookup is case-insensitive; when a name repeats, the first column wins.
type Row struct {
	columns []string
	values  []any
	index   map[string]int
}

// NewRow returns a row of the given columns and values. Extra values or
// columns are ignored.
func NewRow(columns []string, values []any) Row {
	n := min(len(columns), len(values))
	return Row{columns: columns[:n], values: values[:n], index: indexOf(columns[:n])}
}

func indexOf(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		key := schema.Fold(c)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	return index
}

// Columns returns the column names of the row.
func (r Row) Columns() []string { return r.columns }

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// Value returns the value of the i-th column.
func (r Row) Value(i int) any { return r.values[i] }

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	i, ok := r.index[schema.Fold(column)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Rows is the subset of *sql.Rows used for scanning.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanner reads rows sharing one column index.
type scanner struct {
	rows    Rows
	columns []string
	index   map[string]int
}

func newScanner(rows Rows) (*scanner, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mapping: columns: %w", err)
	}
	return &scanner{rows: rows, columns: columns, index: indexOf(columns)}, nil
}

// next scans the current row.
func (s *scanner) next() (Row, error) {
	values := make([]any, len(s.columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return Row{}, fmt.Errorf("mapping: scan: %w", err)
	}
	return Row{columns: s.columns, values: values, index: s.index}, nil
}

// ScanRows reads all remaining rows.
func ScanRows(rows Rows) ([]Row, error) {
	s, err := newScanner(rows)
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		r, err := s.next()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ScanAll reads all remaining rows and maps each of them to T with Map.
func ScanAll[T any](rows Rows) ([]T, error) {
	s, err := newScanner(rows)
	if err != nil {
		return nil, err
	}
	var out []T
	for rows.Next() {
		r, err := s.next()
		if err != nil {
			return nil, err
		}
		v, err := Map[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ScanFirst reads the first row and maps it to T with Map. The boolean is
// false when there are no rows.
func ScanFirst[T any](rows Rows) (T, bool, error) {
	var zero T
	s, err := newScanner(rows)
	if err != nil {
		return zero, false, err
	}
	if !rows.Next() {
		return zero, false, rows.Err()
	}
	r, err := s.next()
	if err != nil {
		return zero, false, err
	}
	v, err := Map[T](r)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
