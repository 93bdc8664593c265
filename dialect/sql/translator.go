package sql

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// Fragment is SQL text and its bound parameters. Every placeholder in SQL
// has exactly one parameter, in emission order.
type Fragment struct {
	SQL    string
	Params []dialect.Param
}

// Binding binds a predicate parameter to a table alias.
type Binding struct {
	Alias  string
	Entity reflect.Type
}

// Translator converts a predicate tree into a parameterized SQL fragment.
// A Translator is single-use.
type Translator struct {
	caps     dialect.Capabilities
	bindings []Binding
	next     int
	used     bool
	sb       strings.Builder
	params   []dialect.Param
}

// NewTranslator returns a translator for single-table predicates over the
// entity type. Placeholders start at @p0.
func NewTranslator(caps dialect.Capabilities, alias string, entity reflect.Type) *Translator {
	return newTranslator(caps, 0, Binding{Alias: alias, Entity: entity})
}

// NewJoinTranslator returns a translator for join conditions. Field
// references bound to parameter 0 are qualified with the left alias, and
// those bound to parameter 1 with the right alias.
func NewJoinTranslator(caps dialect.Capabilities, left, right Binding) *Translator {
	return newTranslator(caps, 0, left, right)
}

func newTranslator(caps dialect.Capabilities, start int, bindings ...Binding) *Translator {
	for i := range bindings {
		bindings[i].Entity = indirect(bindings[i].Entity)
	}
	return &Translator{caps: caps, bindings: bindings, next: start}
}

// Translate converts the predicate rooted at n.
func (t *Translator) Translate(n expr.Node) (Fragment, error) {
	if t.used {
		return Fragment{}, quarry.NewUnsupportedExpressionError("translator reused for a second predicate")
	}
	t.used = true
	if n == nil {
		return Fragment{}, quarry.NewUnsupportedExpressionError("empty predicate")
	}
	if err := t.boolean(n); err != nil {
		return Fragment{}, err
	}
	return Fragment{SQL: t.sb.String(), Params: t.params}, nil
}

// TranslatePredicate translates a single-table predicate over E, using the
// table name of E as alias.
func TranslatePredicate[E any](caps dialect.Capabilities, p expr.Predicate[E]) (Fragment, error) {
	typ := reflect.TypeFor[E]()
	return NewTranslator(caps, tableName(caps, typ), typ).Translate(p.Node())
}

// boolean emits a node in a boolean position.
func (t *Translator) boolean(n expr.Node) error {
	switch n := n.(type) {
	case *expr.BinaryExpr:
		return t.binary(n)
	case *expr.NotExpr:
		t.sb.WriteString("NOT (")
		if err := t.boolean(n.X); err != nil {
			return err
		}
		t.sb.WriteByte(')')
		return nil
	case *expr.MatchExpr:
		return t.match(n)
	case *expr.InExpr:
		return t.in(n)
	case *expr.FieldRef, *expr.Literal:
		return quarry.NewUnsupportedExpressionError("%T used as a boolean condition", n)
	default:
		return quarry.NewUnsupportedExpressionError("node %T", n)
	}
}

// operand emits a node in a value position.
func (t *Translator) operand(n expr.Node) error {
	switch n := n.(type) {
	case *expr.FieldRef:
		col, err := t.column(n)
		if err != nil {
			return err
		}
		t.sb.WriteString(col)
		return nil
	case *expr.Literal:
		t.literal(n)
		return nil
	default:
		return quarry.NewUnsupportedExpressionError("%T used as a comparison operand", n)
	}
}

func (t *Translator) binary(n *expr.BinaryExpr) error {
	switch {
	case n.Op.Logical():
		t.sb.WriteByte('(')
		if err := t.boolean(n.X); err != nil {
			return err
		}
		t.sb.WriteString(" " + n.Op.String() + " ")
		if err := t.boolean(n.Y); err != nil {
			return err
		}
		t.sb.WriteByte(')')
		return nil
	case n.Op.Comparison():
		if isNullLiteral(n.Y) {
			return t.isNull(n.Op, n.X)
		}
		if isNullLiteral(n.X) {
			return t.isNull(n.Op, n.Y)
		}
		t.sb.WriteByte('(')
		if err := t.operand(n.X); err != nil {
			return err
		}
		t.sb.WriteString(" " + n.Op.String() + " ")
		if err := t.operand(n.Y); err != nil {
			return err
		}
		t.sb.WriteByte(')')
		return nil
	default:
		return quarry.NewUnsupportedExpressionError("binary operator %s", n.Op)
	}
}

func isNullLiteral(n expr.Node) bool {
	l, ok := n.(*expr.Literal)
	return ok && l.IsNull()
}

func (t *Translator) isNull(op expr.Op, x expr.Node) error {
	var suffix string
	switch op {
	case expr.OpEQ:
		suffix = " IS NULL)"
	case expr.OpNEQ:
		suffix = " IS NOT NULL)"
	default:
		return quarry.NewUnsupportedExpressionError("operator %s against NULL", op)
	}
	if _, ok := x.(*expr.Literal); ok {
		return quarry.NewUnsupportedExpressionError("NULL compared with a literal")
	}
	t.sb.WriteByte('(')
	if err := t.operand(x); err != nil {
		return err
	}
	t.sb.WriteString(suffix)
	return nil
}

func (t *Translator) match(n *expr.MatchExpr) error {
	ref, ok := n.X.(*expr.FieldRef)
	if !ok {
		return quarry.NewUnsupportedExpressionError("%s on %T", n.Kind, n.X)
	}
	var op string
	switch t.caps.Dialect() {
	case dialect.Postgres:
		op = " ILIKE "
	case dialect.SQLServer, dialect.MySQL, dialect.SQLite:
		op = " LIKE "
	default:
		return quarry.NewUnsupportedDialectError(t.caps.Dialect(), n.Kind.String())
	}
	col, err := t.column(ref)
	if err != nil {
		return err
	}
	t.sb.WriteString("(" + col + op)
	if n.Value.IsNull() {
		t.sb.WriteString("NULL)")
		return nil
	}
	s, ok := n.Value.Deref().(string)
	if !ok {
		return quarry.NewUnsupportedExpressionError("%s with a %T value", n.Kind, n.Value.Deref())
	}
	switch n.Kind {
	case expr.MatchContains:
		s = "%" + s + "%"
	case expr.MatchPrefix:
		s += "%"
	case expr.MatchSuffix:
		s = "%" + s
	default:
		return quarry.NewUnsupportedExpressionError("pattern operator %s", n.Kind)
	}
	t.sb.WriteString(t.param(s, field.TypeString))
	t.sb.WriteByte(')')
	return nil
}

func (t *Translator) in(n *expr.InExpr) error {
	ref, ok := n.X.(*expr.FieldRef)
	if !ok {
		return quarry.NewUnsupportedExpressionError("IN on %T", n.X)
	}
	col, err := t.column(ref)
	if err != nil {
		return err
	}
	if len(n.Values) == 0 {
		t.sb.WriteString("(1 = 0)")
		return nil
	}
	typ := field.TypeOther
	if n.Elem != nil && n.Elem.Kind() != reflect.Interface {
		typ = field.TypeFor(n.Elem)
	}
	t.sb.WriteString(col + " IN (")
	for i, v := range n.Values {
		if i > 0 {
			t.sb.WriteString(", ")
		}
		vt := typ
		if vt == field.TypeOther {
			vt = literalType(v)
		}
		t.sb.WriteString(t.param(v.Deref(), vt))
	}
	t.sb.WriteByte(')')
	return nil
}

func (t *Translator) literal(l *expr.Literal) {
	t.sb.WriteString(t.param(l.Deref(), literalType(l)))
}

func literalType(l *expr.Literal) field.Type {
	if l == nil {
		return field.TypeOther
	}
	typ := l.DeclaredType()
	if typ == nil {
		return field.TypeOther
	}
	return field.TypeFor(typ)
}

// param appends a bound parameter and returns its placeholder.
func (t *Translator) param(v any, typ field.Type) string {
	name := "p" + strconv.Itoa(t.next)
	t.next++
	p := t.caps.MakeParameter(name, v, typ)
	t.params = append(t.params, p)
	return p.Placeholder()
}

// column resolves a field reference to <alias>.<column>.
func (t *Translator) column(ref *expr.FieldRef) (string, error) {
	if ref.Param < 0 || ref.Param >= len(t.bindings) {
		return "", quarry.NewUnsupportedExpressionError("reference to parameter %d of a %d-parameter predicate", ref.Param, len(t.bindings))
	}
	b := t.bindings[ref.Param]
	if ref.Entity != nil && indirect(ref.Entity) != b.Entity {
		return "", quarry.NewUnsupportedExpressionError("field %s of %s bound to parameter %d of type %s", ref.Field, ref.Entity, ref.Param, b.Entity)
	}
	e, err := schema.Describe(b.Entity)
	if err != nil {
		return "", err
	}
	f, ok := e.Field(ref.Field)
	if !ok {
		return "", quarry.NewUnsupportedExpressionError("unknown field %s.%s", e.Name(), ref.Field)
	}
	col := b.Alias + "." + f.Column
	if err := ValidateIdentifier(col); err != nil {
		return "", err
	}
	return col, nil
}

// tableName resolves the table name of t according to the capabilities.
func tableName(caps dialect.Capabilities, t reflect.Type) string {
	if !caps.PluralizeTableNames() {
		return schema.TableNameWith(t, nil)
	}
	if p, ok := caps.(dialect.Pluralizer); ok {
		return schema.TableNameWith(t, p.Pluralize)
	}
	return schema.TableNameWith(t, schema.Pluralize)
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
