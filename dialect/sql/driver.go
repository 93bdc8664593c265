package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// Driver executes statements over database/sql and provides the
// capabilities the Builder needs.
type Driver struct {
	Conn
	pluralize  bool
	pluralizer schema.Pluralizer
}

// Option configures a Driver.
type Option func(*Driver)

// WithPluralize toggles the pluralization of table names for types that do
// not declare one.
func WithPluralize(on bool) Option {
	return func(d *Driver) { d.pluralize = on }
}

// WithPluralizer replaces the default pluralization convention and enables
// pluralization.
func WithPluralizer(p schema.Pluralizer) Option {
	return func(d *Driver) {
		d.pluralize = true
		d.pluralizer = p
	}
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn, opts ...Option) *Driver {
	c.dialect = dialect
	d := &Driver{Conn: c, pluralize: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open wraps the database/sql.Open method and returns a Driver for the
// dialect. The database/sql driver name is derived from the dialect.
func Open(dialect, source string, opts ...Option) (*Driver, error) {
	db, err := sql.Open(DriverName(dialect), source)
	if err != nil {
		return nil, err
	}
	return NewDriver(dialect, Conn{ExecQuerier: db}, opts...), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB, opts ...Option) *Driver {
	return NewDriver(dialect, Conn{ExecQuerier: db}, opts...)
}

// DriverName returns the registered database/sql driver name of a dialect.
func DriverName(name string) string {
	switch name {
	case dialect.Postgres:
		return "postgres"
	case dialect.MySQL:
		return "mysql"
	case dialect.SQLite:
		return "sqlite"
	case dialect.SQLServer:
		return "sqlserver"
	}
	return name
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// PluralizeTableNames implements the dialect.Capabilities interface.
func (d *Driver) PluralizeTableNames() bool { return d.pluralize }

// Pluralize implements the dialect.Pluralizer interface.
func (d *Driver) Pluralize(name string) string {
	if d.pluralizer != nil {
		return d.pluralizer(name)
	}
	return schema.Pluralize(name)
}

// MakeParameter implements the dialect.Capabilities interface. Values the
// database/sql drivers cannot bind directly are converted.
func (d *Driver) MakeParameter(name string, value any, typ field.Type) dialect.Param {
	switch v := value.(type) {
	case field.Date:
		value = v.Time()
	case uuid.UUID:
		value = v.String()
	case apd.Decimal:
		value = v.String()
	case *apd.Decimal:
		if v != nil {
			value = v.String()
		}
	case time.Time:
		if d.Dialect() == dialect.SQLite {
			value = v.UTC()
		}
	}
	return dialect.Param{Name: name, Value: value, Type: typ}
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (Transaction, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction executing rebound statements.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn executes statements with @pN placeholders on an ExecQuerier,
// rebinding them for the dialect.
type Conn struct {
	ExecQuerier
	dialect string
}

// Dialect implements the dialect.Capabilities method.
func (c Conn) Dialect() string {
	// Instrumented drivers register names like "postgres-otel".
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres, dialect.SQLServer} {
		if strings.HasPrefix(c.dialect, name) {
			return name
		}
	}
	return c.dialect
}

// Exec rebinds and executes a statement that returns no rows.
func (c Conn) Exec(ctx context.Context, query string, params []dialect.Param) (res sql.Result, err error) {
	query, args, err := Rebind(c.Dialect(), query, params)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	s, err := c.scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	defer func() { err = errors.Join(err, s.done()) }()
	if res, err = s.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

// Query rebinds and executes a statement that returns rows. A connection
// pinned for session variables is released when the rows are closed.
func (c Conn) Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error) {
	query, args, err := Rebind(c.Dialect(), query, params)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	s, err := c.scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", errors.Join(err, s.done()))
	}
	if s.release == nil {
		return &Rows{rows}, nil
	}
	return &Rows{&scopedRows{ColumnScanner: rows, scope: s}}, nil
}

var (
	_ dialect.Capabilities = (*Driver)(nil)
	_ dialect.Pluralizer   = (*Driver)(nil)
	_ Session              = (*Driver)(nil)
	_ Transaction          = (*Tx)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// scopedRows releases its varScope on the first Close.
type scopedRows struct {
	ColumnScanner
	scope  varScope
	closed bool
}

func (r *scopedRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.ColumnScanner.Close(), r.scope.done())
}
