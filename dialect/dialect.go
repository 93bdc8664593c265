package dialect

import (
	"fmt"

	"github.com/syssam/quarry/schema/field"
)

// Dialect names for external usage.
const (
	Postgres  = "postgres"
	SQLServer = "sqlserver"
	MySQL     = "mysql"
	SQLite    = "sqlite"
)

// Known reports whether the dialect has defined builder behavior.
func Known(name string) bool {
	switch name {
	case Postgres, SQLServer, MySQL, SQLite:
		return true
	}
	return false
}

// Param is a bound parameter: the placeholder name used in the SQL text
// (without the "@" prefix), its value and its semantic type.
type Param struct {
	Name  string
	Value any
	Type  field.Type
}

// Placeholder returns the placeholder of the parameter as written in SQL text.
func (p Param) Placeholder() string {
	return "@" + p.Name
}

// String implements the fmt.Stringer interface.
func (p Param) String() string {
	return fmt.Sprintf("@%s=%v (%s)", p.Name, p.Value, p.Type)
}

// Capabilities is what the query builder needs from its execution
// collaborator.
type Capabilities interface {
	// Dialect returns the active dialect name.
	Dialect() string
	// PluralizeTableNames reports whether unattributed types get a
	// pluralized table name.
	PluralizeTableNames() bool
	// MakeParameter builds a driver-specific bound parameter.
	MakeParameter(name string, value any, typ field.Type) Param
}

// Pluralizer is optionally implemented by Capabilities to replace the
// default pluralization convention.
type Pluralizer interface {
	Pluralize(name string) string
}

// Static is a Capabilities value for building statements without a
// database connection. MakeParameter stores the value unchanged.
type Static struct {
	Name      string
	Pluralize bool
}

// Dialect implements the Capabilities interface.
func (s Static) Dialect() string { return s.Name }

// PluralizeTableNames implements the Capabilities interface.
func (s Static) PluralizeTableNames() bool { return s.Pluralize }

// MakeParameter implements the Capabilities interface.
func (Static) MakeParameter(name string, value any, typ field.Type) Param {
	return Param{Name: name, Value: value, Type: typ}
}

var _ Capabilities = Static{}
