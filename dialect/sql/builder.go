package sql

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// JoinKind is the kind of a table join.
type JoinKind uint8

// lastInsertIDSuffix ends a MySQL INSERT that returns its identity.
// InsertID runs the INSERT alone and reads the id from the result.
const lastInsertIDSuffix = "; SELECT LAST_INSERT_ID()"

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
)

// String returns the SQL keyword of the join kind.
func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	default:
		return "JoinKind(" + strconv.Itoa(int(k)) + ")"
	}
}

type (
	// join is a join descriptor. The ON fragment is translated when the join
	// is added.
	join struct {
		kind   JoinKind
		table  string
		alias  string
		entity reflect.Type
		on     Fragment
	}

	// orderTerm is a column of the ORDER BY clause.
	orderTerm struct {
		col  expr.Column
		desc bool
	}
)

// Builder accumulates the parts of a statement over the entity T. Methods
// record contract violations instead of failing; the first violation is
// observable through Err right after the offending call, and every Build
// method fails with all recorded violations.
//
// A Builder is not safe for concurrent use.
type Builder[T any] struct {
	caps    dialect.Capabilities
	typ     reflect.Type
	table   string
	columns []string
	fields  []expr.Column
	where   expr.Node
	joins   []*join
	order   []orderTerm
	limit   *int
	offset  *int
	params  []dialect.Param
	errs    []error
}

// NewBuilder returns a builder over the entity T for the given capabilities.
func NewBuilder[T any](caps dialect.Capabilities) *Builder[T] {
	typ := indirect(reflect.TypeFor[T]())
	return &Builder[T]{
		caps:  caps,
		typ:   typ,
		table: tableName(caps, typ),
	}
}

// Table returns the main table name.
func (b *Builder[T]) Table() string { return b.table }

// Err returns the contract violations recorded so far, or nil.
func (b *Builder[T]) Err() error { return errors.Join(b.errs...) }

// Params returns the parameters accumulated so far.
func (b *Builder[T]) Params() []dialect.Param { return b.params }

// Select sets the projection to the given raw columns. Columns are validated
// but never qualified.
func (b *Builder[T]) Select(columns ...string) *Builder[T] {
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			b.errs = append(b.errs, err)
			return b
		}
	}
	b.columns, b.fields = columns, nil
	return b
}

// SelectFields sets the projection to the given typed fields. Columns are
// qualified with their table when the statement has joins.
func (b *Builder[T]) SelectFields(fields ...expr.Column) *Builder[T] {
	b.fields, b.columns = fields, nil
	return b
}

// Columns sets the projection to the qualified columns of the selector.
func (b *Builder[T]) Columns(s *ColumnSelector) *Builder[T] {
	columns, err := s.Columns()
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.columns, b.fields = columns, nil
	return b
}

// Where sets the predicate of the statement. A later call replaces it.
func (b *Builder[T]) Where(p expr.Predicate[T]) *Builder[T] {
	b.where = p.Node()
	return b
}

// OrderBy sets the primary ascending ordering term.
func (b *Builder[T]) OrderBy(col expr.Column) *Builder[T] {
	return b.primary("OrderBy", col, false)
}

// OrderByDesc sets the primary descending ordering term.
func (b *Builder[T]) OrderByDesc(col expr.Column) *Builder[T] {
	return b.primary("OrderByDesc", col, true)
}

// ThenBy appends a secondary ascending ordering term.
func (b *Builder[T]) ThenBy(col expr.Column) *Builder[T] {
	return b.secondary("ThenBy", col, false)
}

// ThenByDesc appends a secondary descending ordering term.
func (b *Builder[T]) ThenByDesc(col expr.Column) *Builder[T] {
	return b.secondary("ThenByDesc", col, true)
}

func (b *Builder[T]) primary(op string, col expr.Column, desc bool) *Builder[T] {
	if len(b.order) > 0 {
		b.errs = append(b.errs, quarry.NewOrderingStateError(op, "ordering already established, use ThenBy"))
		return b
	}
	b.order = append(b.order, orderTerm{col: col, desc: desc})
	return b
}

func (b *Builder[T]) secondary(op string, col expr.Column, desc bool) *Builder[T] {
	if len(b.order) == 0 {
		b.errs = append(b.errs, quarry.NewOrderingStateError(op, "no primary ordering, use OrderBy first"))
		return b
	}
	b.order = append(b.order, orderTerm{col: col, desc: desc})
	return b
}

// Join appends a join with the right entity of the condition. The ON
// condition is translated immediately and its parameters are appended to
// the builder.
func (b *Builder[T]) Join(kind JoinKind, on expr.Joiner[T]) *Builder[T] {
	if kind > FullJoin {
		b.errs = append(b.errs, quarry.NewUnsupportedExpressionError("join kind %s", kind))
		return b
	}
	if kind == FullJoin && b.caps.Dialect() == dialect.MySQL {
		b.errs = append(b.errs, quarry.NewUnsupportedDialectError(dialect.MySQL, kind.String()))
		return b
	}
	right := indirect(on.Right())
	j := &join{kind: kind, table: tableName(b.caps, right), entity: right}
	j.alias = b.uniqueAlias(j.table)
	if err := ValidateIdentifier(j.table); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	t := newTranslator(b.caps, len(b.params),
		Binding{Alias: b.table, Entity: b.typ},
		Binding{Alias: j.alias, Entity: right},
	)
	frag, err := t.Translate(on.Node())
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	j.on = frag
	b.params = append(b.params, frag.Params...)
	b.joins = append(b.joins, j)
	return b
}

// uniqueAlias returns the table name, suffixed when the table already
// appears in the statement.
func (b *Builder[T]) uniqueAlias(table string) string {
	taken := func(a string) bool {
		return a == b.table || lo.ContainsBy(b.joins, func(j *join) bool { return j.alias == a })
	}
	if !taken(table) {
		return table
	}
	for i := 1; ; i++ {
		if a := table + "_" + strconv.Itoa(i); !taken(a) {
			return a
		}
	}
}

// Take sets the maximum number of rows.
func (b *Builder[T]) Take(n int) *Builder[T] {
	if n < 0 {
		b.errs = append(b.errs, fmt.Errorf("sql: Take: negative limit %d", n))
		return b
	}
	b.limit = &n
	return b
}

// Skip sets the number of rows to skip.
func (b *Builder[T]) Skip(n int) *Builder[T] {
	if n < 0 {
		b.errs = append(b.errs, fmt.Errorf("sql: Skip: negative offset %d", n))
		return b
	}
	b.offset = &n
	return b
}

// BuildSelect returns the SELECT statement and all accumulated parameters.
func (b *Builder[T]) BuildSelect() (string, []dialect.Param, error) {
	if err := b.check(); err != nil {
		return "", nil, err
	}
	columns, err := b.projection()
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.noRows() {
		sb.WriteString("TOP 0 ")
	}
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)
	for _, j := range b.joins {
		sb.WriteString(" " + j.kind.String() + " " + j.table)
		if j.alias != j.table {
			sb.WriteString(" AS " + j.alias)
		}
		sb.WriteString(" ON " + j.on.SQL)
	}
	params := len(b.params)
	if err := b.whereClause(&sb); err != nil {
		b.params = b.params[:params]
		return "", nil, err
	}
	if len(b.order) > 0 {
		terms, err := b.orderTerms()
		if err != nil {
			b.params = b.params[:params]
			return "", nil, err
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}
	paging, err := b.paging()
	if err != nil {
		b.params = b.params[:params]
		return "", nil, err
	}
	sb.WriteString(paging)
	return sb.String(), b.params, nil
}

// BuildInsert returns the INSERT statement for the writable fields of the
// entity. With returnIdentity, the statement also returns the identity
// value assigned by the database.
func (b *Builder[T]) BuildInsert(entity T, returnIdentity bool) (string, []dialect.Param, error) {
	if err := b.check(); err != nil {
		return "", nil, err
	}
	e, rv, err := b.values(entity)
	if err != nil {
		return "", nil, err
	}
	fields := e.Writable()
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("sql: BuildInsert: %s has no writable fields", e.Name())
	}
	var identity string
	if returnIdentity {
		id := e.Identity()
		if id == nil {
			return "", nil, fmt.Errorf("sql: BuildInsert: %s has no identity field", e.Name())
		}
		if err := ValidateIdentifier(id.Column); err != nil {
			return "", nil, err
		}
		identity = id.Column
		if !dialect.Known(b.caps.Dialect()) {
			return "", nil, quarry.NewUnsupportedDialectError(b.caps.Dialect(), "identity return")
		}
	}
	columns := lo.Map(fields, func(f *schema.Field, _ int) string { return f.Column })
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", nil, err
		}
	}
	holders := make([]string, len(fields))
	for i, f := range fields {
		holders[i] = b.param(rv.FieldByIndex(f.Index), f.Type)
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + b.table + " (" + strings.Join(columns, ", ") + ")")
	if returnIdentity && b.caps.Dialect() == dialect.SQLServer {
		sb.WriteString(" OUTPUT INSERTED." + identity)
	}
	sb.WriteString(" VALUES (" + strings.Join(holders, ", ") + ")")
	if returnIdentity {
		switch b.caps.Dialect() {
		case dialect.Postgres, dialect.SQLite:
			sb.WriteString(" RETURNING " + identity)
		case dialect.MySQL:
			sb.WriteString(lastInsertIDSuffix)
		}
	}
	return sb.String(), b.params, nil
}

// BuildUpdate returns the UPDATE statement setting the writable fields of
// the entity. It fails without a predicate.
func (b *Builder[T]) BuildUpdate(entity T) (string, []dialect.Param, error) {
	if err := b.check(); err != nil {
		return "", nil, err
	}
	if b.where == nil {
		return "", nil, &quarry.MissingPredicateError{Op: "UPDATE", Table: b.table}
	}
	e, rv, err := b.values(entity)
	if err != nil {
		return "", nil, err
	}
	fields := e.Writable()
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("sql: BuildUpdate: %s has no writable fields", e.Name())
	}
	for _, f := range fields {
		if err := ValidateIdentifier(f.Column); err != nil {
			return "", nil, err
		}
	}
	params := len(b.params)
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = f.Column + " = " + b.param(rv.FieldByIndex(f.Index), f.Type)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE " + b.table + " SET " + strings.Join(sets, ", "))
	if err := b.whereClause(&sb); err != nil {
		b.params = b.params[:params]
		return "", nil, err
	}
	return sb.String(), b.params, nil
}

// BuildDelete returns the DELETE statement. It fails without a predicate.
func (b *Builder[T]) BuildDelete() (string, []dialect.Param, error) {
	if err := b.check(); err != nil {
		return "", nil, err
	}
	if b.where == nil {
		return "", nil, &quarry.MissingPredicateError{Op: "DELETE", Table: b.table}
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + b.table)
	params := len(b.params)
	if err := b.whereClause(&sb); err != nil {
		b.params = b.params[:params]
		return "", nil, err
	}
	return sb.String(), b.params, nil
}

// check returns the recorded violations and validates the main table.
func (b *Builder[T]) check() error {
	if err := b.Err(); err != nil {
		return err
	}
	return ValidateIdentifier(b.table)
}

func (b *Builder[T]) whereClause(sb *strings.Builder) error {
	if b.where == nil {
		return nil
	}
	t := newTranslator(b.caps, len(b.params), Binding{Alias: b.table, Entity: b.typ})
	frag, err := t.Translate(b.where)
	if err != nil {
		return err
	}
	sb.WriteString(" WHERE " + frag.SQL)
	b.params = append(b.params, frag.Params...)
	return nil
}

// projection returns the SELECT column list.
func (b *Builder[T]) projection() ([]string, error) {
	switch {
	case len(b.columns) > 0:
		return b.columns, nil
	case len(b.fields) > 0:
		qualify := len(b.joins) > 0
		columns := make([]string, len(b.fields))
		for i, f := range b.fields {
			c, err := b.resolve(f, qualify)
			if err != nil {
				return nil, err
			}
			columns[i] = c
		}
		return columns, nil
	default:
		return []string{"*"}, nil
	}
}

// resolve returns the column of a typed field owned by the main entity or
// one of the joined entities.
func (b *Builder[T]) resolve(c expr.Column, qualify bool) (string, error) {
	ref := c.Ref()
	owner := indirect(ref.Entity)
	alias, ok := b.alias(owner)
	if !ok {
		return "", &quarry.InvalidProjectionError{Table: b.table, Field: ref.Field, Reason: fmt.Sprintf("%s is not part of the statement", owner)}
	}
	e, err := schema.Describe(owner)
	if err != nil {
		return "", err
	}
	f, ok := e.Field(ref.Field)
	if !ok {
		return "", &quarry.InvalidProjectionError{Table: alias, Field: ref.Field, Reason: "unknown field"}
	}
	col := f.Column
	if qualify {
		col = alias + "." + col
	}
	if err := ValidateIdentifier(col); err != nil {
		return "", err
	}
	return col, nil
}

// alias returns the alias of the first table bound to the entity type.
func (b *Builder[T]) alias(t reflect.Type) (string, bool) {
	if t == b.typ {
		return b.table, true
	}
	j, ok := lo.Find(b.joins, func(j *join) bool { return j.entity == t })
	if !ok {
		return "", false
	}
	return j.alias, true
}

func (b *Builder[T]) orderTerms() ([]string, error) {
	terms := make([]string, len(b.order))
	for i, o := range b.order {
		c, err := b.resolve(o.col, true)
		if err != nil {
			return nil, err
		}
		if o.desc {
			c += " DESC"
		}
		terms[i] = c
	}
	return terms, nil
}

// values returns the descriptor table and the struct value of the entity.
func (b *Builder[T]) values(entity T) (*schema.Entity, reflect.Value, error) {
	e, err := schema.Describe(b.typ)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	rv := reflect.ValueOf(&entity).Elem()
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, reflect.Value{}, fmt.Errorf("sql: nil %s entity", e.Name())
		}
		rv = rv.Elem()
	}
	return e, rv, nil
}

// param appends the value as a bound parameter and returns its placeholder.
func (b *Builder[T]) param(v reflect.Value, typ field.Type) string {
	var value any
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Pointer {
		value = v.Interface()
	}
	p := b.caps.MakeParameter("p"+strconv.Itoa(len(b.params)), value, typ)
	b.params = append(b.params, p)
	return p.Placeholder()
}
