package schema

import (
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"
)

// Tabler is implemented by entity types that declare their table name.
type Tabler interface {
	TableName() string
}

// A Pluralizer turns a singular type name into a table name.
type Pluralizer func(string) string

// TableName returns the table name of the entity type t. A TableName method
// (on the value or the pointer receiver) wins; otherwise the type name is
// pluralized with the default convention when pluralize is set, or used as is.
func TableName(t reflect.Type, pluralize bool) string {
	if pluralize {
		return TableNameWith(t, Pluralize)
	}
	return TableNameWith(t, nil)
}

// TableNameWith is like TableName with an explicit pluralizer. A nil
// pluralizer disables pluralization.
func TableNameWith(t reflect.Type, p Pluralizer) string {
	t = indirect(t)
	if name, ok := declaredTable(t); ok {
		return name
	}
	if p == nil {
		return t.Name()
	}
	return p(t.Name())
}

func declaredTable(t reflect.Type) (string, bool) {
	if t.Kind() == reflect.Interface {
		return "", false
	}
	tb, ok := reflect.New(t).Interface().(Tabler)
	if !ok {
		return "", false
	}
	name := tb.TableName()
	return name, name != ""
}

// ColumnName returns the column name of a struct field: the name of its db
// tag when present, the Go field name otherwise.
func ColumnName(f reflect.StructField) string {
	if name, _ := parseTag(f.Tag.Get(TagName)); name != "" && name != "-" {
		return name
	}
	return f.Name
}

// Pluralize applies the default naming convention: a consonant followed by
// "y" becomes "ies", names ending in s, x, ch or sh get "es", and anything
// else gets "s". Suffix matching is case-sensitive and the base name is
// passed through untouched.
func Pluralize(name string) string {
	n := len(name)
	switch {
	case n == 0:
		return name
	case n > 1 && name[n-1] == 'y' && !isVowel(name[n-2]):
		return name[:n-1] + "ies"
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "ch"), strings.HasSuffix(name, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

// English pluralizes with the English inflection rules of go-openapi/inflect
// (e.g. Person -> People). It is an opt-in alternative to Pluralize.
func English(name string) string {
	return inflect.Pluralize(name)
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
