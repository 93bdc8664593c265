package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/syssam/quarry/schema/field"
)

// TagName is the struct tag holding column overrides and options.
//
//	type User struct {
//	    ID        int64     `db:"id,identity"`
//	    Name      string    `db:"user_name"`
//	    CreatedAt time.Time `db:"created_at,readonly"`
//	    Secret    string    `db:"-"`
//	}
const TagName = "db"

// Tag options.
const (
	OptIdentity = "identity"
	OptReadOnly = "readonly"
)

// Field describes a mapped struct field.
type Field struct {
	Name     string       // Go field name.
	Column   string       // Resolved column name.
	Index    []int        // Index path for reflect.Value.FieldByIndex.
	GoType   reflect.Type // Declared Go type.
	Type     field.Type   // Semantic type of GoType.
	Identity bool         // Assigned by the database on insert.
	ReadOnly bool         // Never written by INSERT or UPDATE.
}

// Writable reports whether the field is part of INSERT and UPDATE statements.
func (f *Field) Writable() bool {
	return !f.Identity && !f.ReadOnly
}

// Entity is the descriptor table of an entity type. It is built once per
// type by Describe and must not be modified.
type Entity struct {
	Type   reflect.Type
	Fields []*Field

	byName   map[string]*Field
	byColumn map[string]*Field
	identity *Field
}

// Name returns the Go type name of the entity.
func (e *Entity) Name() string { return e.Type.Name() }

// Table returns the table name of the entity, see TableNameWith.
func (e *Entity) Table(p Pluralizer) string { return TableNameWith(e.Type, p) }

// Field returns the field with the given Go name.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// Lookup returns the field mapped to the given column. Matching is
// case-insensitive.
func (e *Entity) Lookup(column string) (*Field, bool) {
	f, ok := e.byColumn[Fold(column)]
	return f, ok
}

// Identity returns the identity field, or nil if the entity has none.
func (e *Entity) Identity() *Field { return e.identity }

// Writable returns the fields written by INSERT and UPDATE, in declaration order.
func (e *Entity) Writable() []*Field {
	fs := make([]*Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Writable() {
			fs = append(fs, f)
		}
	}
	return fs
}

var (
	entities sync.Map // reflect.Type -> *Entity
	building singleflight.Group
)

// Describe returns the descriptor table of the struct type t (or a pointer
// to it). Results are cached; concurrent first calls for the same type share
// a single build.
func Describe(t reflect.Type) (*Entity, error) {
	if t == nil {
		return nil, fmt.Errorf("schema: describe nil type")
	}
	t = indirect(t)
	if e, ok := entities.Load(t); ok {
		return e.(*Entity), nil
	}
	// Local types may share a name, so the key carries the type identity.
	v, err, _ := building.Do(fmt.Sprintf("%s@%p", t, t), func() (any, error) {
		if e, ok := entities.Load(t); ok {
			return e, nil
		}
		e, err := describe(t)
		if err != nil {
			return nil, err
		}
		actual, _ := entities.LoadOrStore(t, e)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entity), nil
}

// MustDescribe is like Describe but panics on error.
func MustDescribe(t reflect.Type) *Entity {
	e, err := Describe(t)
	if err != nil {
		panic(err)
	}
	return e
}

// Of returns the descriptor table of T.
func Of[T any]() (*Entity, error) {
	return Describe(reflect.TypeFor[T]())
}

func describe(t reflect.Type) (*Entity, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t)
	}
	e := &Entity{
		Type:     t,
		byName:   make(map[string]*Field),
		byColumn: make(map[string]*Field),
	}
	if err := e.collect(t, nil); err != nil {
		return nil, err
	}
	// Without an explicit identity option, a field named or mapped to "id" is
	// the conventional identity.
	for _, f := range e.Fields {
		if e.identity != nil {
			break
		}
		if Fold(f.Column) == "id" || Fold(f.Name) == "id" {
			f.Identity = true
			e.identity = f
		}
	}
	return e, nil
}

func (e *Entity) collect(t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts := parseTag(sf.Tag.Get(TagName))
		if name == "-" || !sf.IsExported() {
			continue
		}
		idx := append(append([]int(nil), index...), i)
		if sf.Anonymous && name == "" && embeddable(sf.Type) {
			if err := e.collect(sf.Type, idx); err != nil {
				return err
			}
			continue
		}
		f := &Field{
			Name:     sf.Name,
			Column:   ColumnName(sf),
			Index:    idx,
			GoType:   sf.Type,
			Type:     field.TypeFor(sf.Type),
			Identity: opts.has(OptIdentity),
			ReadOnly: opts.has(OptReadOnly),
		}
		key := Fold(f.Column)
		if prev, ok := e.byColumn[key]; ok {
			return fmt.Errorf("schema: %s: fields %s and %s map to the same column %q", t, prev.Name, f.Name, f.Column)
		}
		if f.Identity {
			if e.identity != nil {
				return fmt.Errorf("schema: %s: multiple identity fields (%s, %s)", t, e.identity.Name, f.Name)
			}
			e.identity = f
		}
		e.Fields = append(e.Fields, f)
		e.byName[f.Name] = f
		e.byColumn[key] = f
	}
	return nil
}

// embeddable reports whether an anonymous field is flattened into its parent.
// Struct types with a semantic scalar meaning (time.Time, field.Date, ...) are
// kept as columns.
func embeddable(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && field.TypeFor(t) == field.TypeOther
}

// Fold returns the case-folded form of a column name used for
// case-insensitive matching.
func Fold(s string) string {
	return cases.Fold().String(s)
}

type tagOptions []string

func (o tagOptions) has(opt string) bool {
	for _, s := range o {
		if s == opt {
			return true
		}
	}
	return false
}

func parseTag(tag string) (string, tagOptions) {
	name, rest, _ := strings.Cut(tag, ",")
	if rest == "" {
		return strings.TrimSpace(name), nil
	}
	opts := strings.Split(rest, ",")
	for i := range opts {
		opts[i] = strings.TrimSpace(opts[i])
	}
	return strings.TrimSpace(name), opts
}
