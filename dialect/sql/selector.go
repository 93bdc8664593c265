package sql

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/samber/lo"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// ColumnSelector accumulates qualified columns across the main table and
// joined tables.
//
//	sel := sql.NewColumnSelector(drv)
//	sql.Include[User](sel, UserID, UserName)
//	sql.Include[Post](sel, PostTitle)
//	b.Columns(sel) // Users.ID, Users.Name, Posts.Title
type ColumnSelector struct {
	caps    dialect.Capabilities
	columns []string
	errs    []error
}

// NewColumnSelector returns an empty selector. Table names are resolved
// with the given capabilities.
func NewColumnSelector(caps dialect.Capabilities) *ColumnSelector {
	return &ColumnSelector{caps: caps}
}

// Include registers fields of the table of E. Every field must be owned by
// E, and at least one field is required.
func Include[E any](s *ColumnSelector, fields ...expr.Column) *ColumnSelector {
	typ := indirect(reflect.TypeFor[E]())
	table := tableName(s.caps, typ)
	if len(fields) == 0 {
		s.errs = append(s.errs, &quarry.InvalidProjectionError{Table: table, Reason: "no columns selected"})
		return s
	}
	e, err := schema.Describe(typ)
	if err != nil {
		s.errs = append(s.errs, err)
		return s
	}
	columns := make([]string, 0, len(fields))
	for _, c := range fields {
		ref := c.Ref()
		if owner := indirect(ref.Entity); owner != typ {
			s.errs = append(s.errs, &quarry.InvalidProjectionError{Table: table, Field: ref.Field, Reason: fmt.Sprintf("field is owned by %s", owner)})
			return s
		}
		f, ok := e.Field(ref.Field)
		if !ok {
			s.errs = append(s.errs, &quarry.InvalidProjectionError{Table: table, Field: ref.Field, Reason: "unknown field"})
			return s
		}
		columns = append(columns, table+"."+f.Column)
	}
	s.columns = append(s.columns, columns...)
	return s
}

// Columns returns the qualified columns, validated as identifiers.
func (s *ColumnSelector) Columns() ([]string, error) {
	if len(s.errs) > 0 {
		return nil, errors.Join(s.errs...)
	}
	if len(s.columns) == 0 {
		return nil, &quarry.InvalidProjectionError{Table: "*", Reason: "no tables included"}
	}
	if bad, ok := lo.Find(s.columns, func(c string) bool { return !isValidIdentifier(c) }); ok {
		return nil, quarry.NewInvalidIdentifierError(bad)
	}
	return lo.Uniq(s.columns), nil
}
