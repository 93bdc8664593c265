package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/mapping"
)

type (
	// Executor runs statements with @pN placeholders. It is implemented by
	// Conn, and therefore by Driver and Tx.
	Executor interface {
		Dialect() string
		Exec(ctx context.Context, query string, params []dialect.Param) (Result, error)
		Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error)
	}

	// Transaction is an Executor bound to a database transaction.
	Transaction interface {
		Executor
		Commit() error
		Rollback() error
	}

	// Session is an Executor that also provides the builder capabilities.
	// It is implemented by Driver, StatsDriver and DebugDriver.
	Session interface {
		dialect.Capabilities
		dialect.Pluralizer
		Executor
		Tx(ctx context.Context) (Transaction, error)
		Close() error
	}
)

// Query executes a SELECT statement and maps every row to T.
//
//	query, params, err := sql.NewBuilder[User](drv).Where(UserAge.GT(18)).BuildSelect()
//	if err != nil {
//		return err
//	}
//	users, err := sql.Query[User](ctx, drv, query, params)
func Query[T any](ctx context.Context, ex Executor, query string, params []dialect.Param) ([]T, error) {
	rows, err := ex.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vs, err := mapping.ScanAll[T](rows)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return vs, nil
}

// First executes a SELECT statement and maps its first row to T. The
// boolean is false if the statement returned no rows.
func First[T any](ctx context.Context, ex Executor, query string, params []dialect.Param) (T, bool, error) {
	var zero T
	rows, err := ex.Query(ctx, query, params)
	if err != nil {
		return zero, false, err
	}
	defer rows.Close()
	v, ok, err := mapping.ScanFirst[T](rows)
	if err != nil {
		return zero, false, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return v, ok, nil
}

// InsertID executes an INSERT statement built with returnIdentity and
// returns the identity value. The MySQL form is executed without its
// trailing SELECT LAST_INSERT_ID(), so it needs neither multiStatements nor
// client-side interpolation, and the id is read from the driver result.
// Result sets without rows are skipped for the other dialects.
func InsertID(ctx context.Context, ex Executor, query string, params []dialect.Param) (id int64, err error) {
	if insert, ok := strings.CutSuffix(query, lastInsertIDSuffix); ok {
		res, err := ex.Exec(ctx, insert, params)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("dialect/sql: last insert id: %w", err)
		}
		return id, nil
	}
	rows, err := ex.Query(ctx, query, params)
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()
	for {
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				return 0, fmt.Errorf("dialect/sql: scan identity: %w", err)
			}
			return id, nil
		}
		if err := rows.Err(); err != nil {
			return 0, err
		}
		if !rows.NextResultSet() {
			return 0, fmt.Errorf("dialect/sql: statement returned no identity")
		}
	}
}
