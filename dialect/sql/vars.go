package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/quarry/dialect"
)

// varsKey is the context key of the session variables.
type varsKey struct{}

type sessionVar struct{ name, value string }

// WithVar returns a context carrying a session variable that is SET on the
// connection before every statement executed with it. Variables are applied
// in the order they were added; a later value for the same name wins.
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", tenant)
//	users, err := sql.Query[User](ctx, drv, query, params)
func WithVar(ctx context.Context, name, value string) context.Context {
	prev := contextVars(ctx)
	vars := make([]sessionVar, len(prev), len(prev)+1)
	copy(vars, prev)
	return context.WithValue(ctx, varsKey{}, append(vars, sessionVar{name, value}))
}

// WithIntVar is WithVar for integer values.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext reports the effective value of a session variable.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars := contextVars(ctx)
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].name == name {
			return vars[i].value, true
		}
	}
	return "", false
}

func contextVars(ctx context.Context) []sessionVar {
	vars, _ := ctx.Value(varsKey{}).([]sessionVar)
	return vars
}

// quoteVarValue returns s as a single-quoted SQL string literal. Backslashes
// are doubled for MySQL.
func quoteVarValue(s string) string {
	if strings.ContainsAny(s, `'\`) {
		s = strings.NewReplacer(`\`, `\\`, `'`, `''`).Replace(s)
	}
	return "'" + s + "'"
}

// varScope is the executor a statement runs on when session variables are
// set. A pooled connection is pinned for the statement and released, with
// its variables reset, when the statement is done.
type varScope struct {
	ExecQuerier
	release func() error
}

func (s varScope) done() error {
	if s.release == nil {
		return nil
	}
	return s.release()
}

// varResetTimeout bounds the reset of variables on a pinned connection. The
// reset runs on a fresh context so a canceled request still cleans up.
const varResetTimeout = 5 * time.Second

// scope prepares the executor for a statement run with ctx.
func (c Conn) scope(ctx context.Context) (varScope, error) {
	vars := contextVars(ctx)
	if len(vars) == 0 {
		return varScope{ExecQuerier: c.ExecQuerier}, nil
	}
	for _, v := range vars {
		if !sessionVarRe.MatchString(v.name) {
			return varScope{}, fmt.Errorf("invalid session variable name: %q", v.name)
		}
	}
	var s varScope
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		// Variables set inside a transaction live until it ends.
		s.ExecQuerier = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return varScope{}, err
		}
		s.ExecQuerier = conn
		s.release = c.resetter(conn, vars)
	default:
		return varScope{}, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, v := range vars {
		if _, err := s.ExecContext(ctx, "SET "+v.name+" = "+quoteVarValue(v.value)); err != nil {
			return varScope{}, errors.Join(err, s.done())
		}
	}
	return s, nil
}

// resetter returns the release function of a pinned connection.
func (c Conn) resetter(conn *sql.Conn, vars []sessionVar) func() error {
	var stmts []string
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v.name] {
			continue
		}
		seen[v.name] = true
		switch c.Dialect() {
		case dialect.Postgres:
			stmts = append(stmts, "RESET "+v.name)
		case dialect.MySQL:
			stmts = append(stmts, "SET "+v.name+" = NULL")
		}
	}
	return func() error {
		if len(stmts) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), varResetTimeout)
			defer cancel()
			for _, stmt := range stmts {
				if _, err := conn.ExecContext(ctx, stmt); err != nil {
					return errors.Join(err, conn.Close())
				}
			}
		}
		return conn.Close()
	}
}
