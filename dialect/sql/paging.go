package sql

import (
	"strconv"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
)

// mysqlMaxRows is the row count MySQL documents for "all remaining rows"
// when an offset is given without a limit.
const mysqlMaxRows = "18446744073709551615"

// paging returns the paging clause of the SELECT statement.
func (b *Builder[T]) paging() (string, error) {
	if b.limit == nil && b.offset == nil {
		return "", nil
	}
	switch d := b.caps.Dialect(); d {
	case dialect.SQLServer:
		if len(b.order) == 0 {
			return "", &quarry.PagingError{Dialect: d}
		}
		if b.noRows() {
			// OFFSET/FETCH rejects a zero row count; TOP 0 is written instead.
			return "", nil
		}
		skip := 0
		if b.offset != nil {
			skip = *b.offset
		}
		clause := " OFFSET " + strconv.Itoa(skip) + " ROWS"
		if b.limit != nil {
			clause += " FETCH NEXT " + strconv.Itoa(*b.limit) + " ROWS ONLY"
		}
		return clause, nil
	case dialect.Postgres, dialect.MySQL, dialect.SQLite:
		var clause string
		switch {
		case b.limit != nil:
			clause = " LIMIT " + strconv.Itoa(*b.limit)
		case d == dialect.MySQL:
			clause = " LIMIT " + mysqlMaxRows
		case d == dialect.SQLite:
			clause = " LIMIT -1"
		}
		if b.offset != nil {
			clause += " OFFSET " + strconv.Itoa(*b.offset)
		}
		return clause, nil
	default:
		return "", quarry.NewUnsupportedDialectError(d, "paging")
	}
}

// noRows reports whether the statement is paged to zero rows on SQL Server,
// which selects with TOP 0.
func (b *Builder[T]) noRows() bool {
	return b.limit != nil && *b.limit == 0 && b.caps.Dialect() == dialect.SQLServer
}
