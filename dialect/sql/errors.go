package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// sqlStateError is implemented by errors that provide SQLSTATE codes, such
// as those of SQL Server drivers.
type sqlStateError interface {
	SQLState() string
}

// constraint describes how each driver reports one kind of violation.
type constraint struct {
	pg       string
	mysql    []uint16
	sqlite   []int
	messages []string
}

var (
	uniqueConstraint = constraint{
		pg:     pgUniqueViolation,
		mysql:  []uint16{mysqlDuplicateEntry},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		messages: []string{
			"Error 1062",                 // MySQL
			"violates unique constraint", // Postgres
			"UNIQUE constraint failed",   // SQLite
			"duplicate key",              // SQL Server
		},
	}
	foreignKeyConstraint = constraint{
		pg:     pgForeignKeyViolation,
		mysql:  []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		messages: []string{
			"Error 1451",                      // MySQL (Cannot delete or update a parent row)
			"Error 1452",                      // MySQL (Cannot add or update a child row)
			"violates foreign key constraint", // Postgres
			"FOREIGN KEY constraint failed",   // SQLite
			"FOREIGN KEY constraint",          // SQL Server
		},
	}
	checkConstraint = constraint{
		pg:     pgCheckViolation,
		mysql:  []uint16{mysqlCheckConstraintViolate},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		messages: []string{
			"Error 3819",                // MySQL
			"violates check constraint", // Postgres
			"CHECK constraint failed",   // SQLite
			"CHECK constraint",          // SQL Server
		},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return uniqueConstraint.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyConstraint.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return checkConstraint.match(err)
}

func (c constraint) match(err error) bool {
	if err == nil {
		return false
	}
	if e := (*pq.Error)(nil); errors.As(err, &e) {
		return string(e.Code) == c.pg
	}
	if e := (*mysql.MySQLError)(nil); errors.As(err, &e) {
		return lo.Contains(c.mysql, e.Number)
	}
	if e := (*sqlite.Error)(nil); errors.As(err, &e) && lo.Contains(c.sqlite, e.Code()) {
		return true
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == c.pg {
		return true
	}
	// Fallback to string matching for drivers that don't expose codes.
	return containsAny(err.Error(), c.messages...)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
