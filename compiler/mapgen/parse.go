package mapgen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/mixin"
)

// File is a parsed Go source file and the structs selected for generation.
type File struct {
	Path    string
	Package string
	Structs []*Struct
}

// Struct is an entity type found in a source file.
type Struct struct {
	Name   string
	Fields []*Field
}

// Field is a mapped column of a struct. Path is the selector path from the
// struct value to the field, longer than one for fields promoted from
// embedded structs.
type Field struct {
	Path   []string
	Column string
}

// Selector returns the field selector relative to the struct value.
func (f *Field) Selector() string { return strings.Join(f.Path, ".") }

const mixinPkg = "github.com/syssam/quarry/schema/mixin"

// scalarStructs are struct types from other packages that map to a single
// column when embedded, keyed by import path and type name.
var scalarStructs = map[string]bool{
	"time.Time":                                  true,
	"github.com/syssam/quarry/schema/field.Date": true,
	"github.com/google/uuid.UUID":                true,
	"github.com/cockroachdb/apd/v3.Decimal":      true,
	"math/big.Rat":                               true,
	"math/big.Float":                             true,
	"database/sql.NullString":                    true,
	"database/sql.NullInt64":                     true,
	"database/sql.NullInt32":                     true,
	"database/sql.NullInt16":                     true,
	"database/sql.NullByte":                      true,
	"database/sql.NullFloat64":                   true,
	"database/sql.NullBool":                      true,
	"database/sql.NullTime":                      true,
}

// remoteStructs are struct types from other packages flattened when
// embedded. Their fields are read from the compiled types.
var remoteStructs = map[string]reflect.Type{
	mixinPkg + ".Identity":   reflect.TypeFor[mixin.Identity](),
	mixinPkg + ".Time":       reflect.TypeFor[mixin.Time](),
	mixinPkg + ".CreateTime": reflect.TypeFor[mixin.CreateTime](),
	mixinPkg + ".UpdateTime": reflect.TypeFor[mixin.UpdateTime](),
	mixinPkg + ".SoftDelete": reflect.TypeFor[mixin.SoftDelete](),
}

// ParseFile parses the Go source file at path (src follows go/parser rules
// and may be nil) and describes the named struct types. With no names, every
// exported non-generic struct of the file is selected.
func ParseFile(path string, src any, names ...string) (*File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("mapgen: parse %s: %w", path, err)
	}
	p := &resolver{
		decls:   make(map[string]*ast.TypeSpec),
		imports: make(map[string]string),
	}
	for _, imp := range af.Imports {
		ipath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := importName(ipath)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		p.imports[name] = ipath
	}
	var order []string
	for _, d := range af.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			p.decls[ts.Name.Name] = ts
			order = append(order, ts.Name.Name)
		}
	}
	if len(names) == 0 {
		names = lo.Filter(order, func(name string, _ int) bool {
			_, ok := p.decls[name].Type.(*ast.StructType)
			return ast.IsExported(name) && p.decls[name].TypeParams == nil && ok
		})
	}
	f := &File{Path: path, Package: af.Name.Name}
	for _, name := range lo.Uniq(names) {
		s, err := p.parseStruct(name)
		if err != nil {
			return nil, fmt.Errorf("mapgen: %s: %w", path, err)
		}
		f.Structs = append(f.Structs, s)
	}
	return f, nil
}

type resolver struct {
	decls   map[string]*ast.TypeSpec
	imports map[string]string // local name -> import path
}

func (p *resolver) parseStruct(name string) (*Struct, error) {
	ts, ok := p.decls[name]
	if !ok {
		return nil, fmt.Errorf("type %s not found", name)
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return nil, fmt.Errorf("type %s is not a struct", name)
	}
	if ts.TypeParams != nil {
		return nil, fmt.Errorf("generic type %s is not supported", name)
	}
	s := &Struct{Name: name}
	if err := p.collect(s, st, nil, map[string]bool{name: true}); err != nil {
		return nil, fmt.Errorf("type %s: %w", name, err)
	}
	columns := make(map[string]string)
	for _, f := range s.Fields {
		key := schema.Fold(f.Column)
		if prev, ok := columns[key]; ok {
			return nil, fmt.Errorf("type %s: fields %s and %s map to the same column %q", name, prev, f.Selector(), f.Column)
		}
		columns[key] = f.Selector()
	}
	return s, nil
}

// collect mirrors the field rules of schema.Describe on the syntax tree.
func (p *resolver) collect(s *Struct, st *ast.StructType, path []string, seen map[string]bool) error {
	for _, af := range st.Fields.List {
		column := tagColumn(af.Tag)
		if column == "-" {
			continue
		}
		if len(af.Names) > 0 {
			for _, n := range af.Names {
				if !n.IsExported() {
					continue
				}
				s.Fields = append(s.Fields, newField(path, n.Name, column))
			}
			continue
		}
		name, local, remote, err := p.embedded(af.Type)
		if err != nil {
			return err
		}
		if !ast.IsExported(name) {
			continue
		}
		if column == "" && remote != nil {
			if err := collectRemote(s, remote, append(append([]string(nil), path...), name)); err != nil {
				return err
			}
			continue
		}
		if column == "" && local != nil {
			if seen[name] {
				return fmt.Errorf("recursive embedding of %s", name)
			}
			seen[name] = true
			err := p.collect(s, local, append(append([]string(nil), path...), name), seen)
			delete(seen, name)
			if err != nil {
				return err
			}
			continue
		}
		s.Fields = append(s.Fields, newField(path, name, column))
	}
	return nil
}

// embedded resolves an embedded field to its field name and, for struct
// types that are flattened, either the local struct or the remote type.
func (p *resolver) embedded(expr ast.Expr) (string, *ast.StructType, reflect.Type, error) {
	switch x := expr.(type) {
	case *ast.Ident:
		if ts, ok := p.decls[x.Name]; ok {
			if st, ok := ts.Type.(*ast.StructType); ok {
				return x.Name, st, nil, nil
			}
		}
		return x.Name, nil, nil, nil
	case *ast.StarExpr:
		name, _, _, err := p.embedded(x.X)
		return name, nil, nil, err
	case *ast.SelectorExpr:
		if pkg, ok := x.X.(*ast.Ident); ok {
			key := p.imports[pkg.Name] + "." + x.Sel.Name
			if scalarStructs[key] {
				return x.Sel.Name, nil, nil, nil
			}
			if t, ok := remoteStructs[key]; ok {
				return x.Sel.Name, nil, t, nil
			}
		}
		return "", nil, nil, fmt.Errorf("embedded type %s cannot be resolved from source", exprString(x))
	}
	return "", nil, nil, fmt.Errorf("unsupported embedded field %s", exprString(expr))
}

// collectRemote adds the fields of a compiled struct type.
func collectRemote(s *Struct, t reflect.Type, path []string) error {
	e, err := schema.Describe(t)
	if err != nil {
		return err
	}
	for _, f := range e.Fields {
		names := make([]string, len(f.Index))
		typ := t
		for i, idx := range f.Index {
			sf := typ.Field(idx)
			names[i] = sf.Name
			typ = sf.Type
		}
		s.Fields = append(s.Fields, &Field{Path: append(append([]string(nil), path...), names...), Column: f.Column})
	}
	return nil
}

// importName returns the default package name of an import path:
// its last element, skipping a major version suffix.
func importName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = elems[len(elems)-2]
	}
	return name
}

func newField(path []string, name, column string) *Field {
	if column == "" {
		column = name
	}
	return &Field{Path: append(append([]string(nil), path...), name), Column: column}
}

func tagColumn(lit *ast.BasicLit) string {
	if lit == nil {
		return ""
	}
	tag, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	name, _, _ := strings.Cut(reflect.StructTag(tag).Get(schema.TagName), ",")
	return strings.TrimSpace(name)
}

func exprString(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.SelectorExpr:
		return exprString(x.X) + "." + x.Sel.Name
	case *ast.StarExpr:
		return "*" + exprString(x.X)
	}
	return fmt.Sprintf("%T", expr)
}
