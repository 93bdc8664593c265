package expr

import (
	"fmt"
	"reflect"
)

// Node is a predicate syntax tree node. The set of implementations is
// closed: BinaryExpr, NotExpr, FieldRef, Literal, MatchExpr and InExpr.
type Node interface {
	node()
}

// Op is a binary operator.
type Op uint8

// Binary operators.
const (
	OpInvalid Op = iota
	OpEQ
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpAnd
	OpOr
	endOps
)

var opText = [...]string{
	OpEQ:  "=",
	OpNEQ: "<>",
	OpGT:  ">",
	OpGTE: ">=",
	OpLT:  "<",
	OpLTE: "<=",
	OpAnd: "AND",
	OpOr:  "OR",
}

// String returns the SQL text of the operator.
func (o Op) String() string {
	if o > OpInvalid && o < endOps {
		return opText[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Valid reports whether o is a known operator.
func (o Op) Valid() bool { return o > OpInvalid && o < endOps }

// Comparison reports whether o compares two values.
func (o Op) Comparison() bool { return o >= OpEQ && o <= OpLTE }

// Logical reports whether o is a boolean connective.
func (o Op) Logical() bool { return o == OpAnd || o == OpOr }

// MatchKind is a string pattern operator.
type MatchKind uint8

// Pattern operators.
const (
	MatchInvalid MatchKind = iota
	MatchContains
	MatchPrefix
	MatchSuffix
)

// String returns the name of the pattern operator.
func (k MatchKind) String() string {
	switch k {
	case MatchContains:
		return "contains"
	case MatchPrefix:
		return "starts-with"
	case MatchSuffix:
		return "ends-with"
	default:
		return fmt.Sprintf("MatchKind(%d)", uint8(k))
	}
}

type (
	// BinaryExpr is a comparison or a boolean connective.
	BinaryExpr struct {
		Op   Op
		X, Y Node
	}

	// NotExpr negates its operand.
	NotExpr struct {
		X Node
	}

	// FieldRef references a field of one of the bound parameters. Param is 0
	// for single-table predicates and for the left side of a join, 1 for the
	// right side of a join.
	FieldRef struct {
		Param  int
		Entity reflect.Type
		Field  string // Go field name.
	}

	// Literal is a captured value. Type is the declared Go type of the value;
	// a nil Value (or a nil pointer) is the null constant.
	Literal struct {
		Value any
		Type  reflect.Type
	}

	// MatchExpr is a string pattern match on a field.
	MatchExpr struct {
		Kind  MatchKind
		X     Node
		Value *Literal
	}

	// InExpr is a set membership test. Elem is the declared element type.
	InExpr struct {
		X      Node
		Values []*Literal
		Elem   reflect.Type
	}
)

func (*BinaryExpr) node() {}
func (*NotExpr) node()    {}
func (*FieldRef) node()   {}
func (*Literal) node()    {}
func (*MatchExpr) node()  {}
func (*InExpr) node()     {}

// IsNull reports whether the literal is the null constant.
func (l *Literal) IsNull() bool {
	if l == nil || l.Value == nil {
		return true
	}
	v := reflect.ValueOf(l.Value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil() && v.Kind() != reflect.Slice
	}
	return false
}

// Deref returns the literal value with pointers dereferenced.
func (l *Literal) Deref() any {
	if l.IsNull() {
		return nil
	}
	v := reflect.ValueOf(l.Value)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// DeclaredType returns the declared type of the literal, or the dynamic
// type of its value when the declared type is missing or an interface.
func (l *Literal) DeclaredType() reflect.Type {
	if l.Type != nil && l.Type.Kind() != reflect.Interface {
		return l.Type
	}
	if l.Value != nil {
		return reflect.TypeOf(l.Value)
	}
	return l.Type
}

// Cmp returns a binary node. It does not validate the operator; the
// translator rejects unknown operators.
func Cmp(op Op, x, y Node) *BinaryExpr {
	return &BinaryExpr{Op: op, X: x, Y: y}
}

// Lit returns a literal whose declared type is the dynamic type of v.
func Lit(v any) *Literal {
	return &Literal{Value: v, Type: reflect.TypeOf(v)}
}

// LitOf returns a literal with the declared type V.
func LitOf[V any](v V) *Literal {
	return &Literal{Value: v, Type: reflect.TypeFor[V]()}
}

// Null returns the null constant.
func Null() *Literal {
	return &Literal{}
}

// Ref returns a reference to the field name of E bound to parameter 0.
func Ref[E any](name string) *FieldRef {
	return &FieldRef{Entity: reflect.TypeFor[E](), Field: name}
}

// Match returns a pattern match node.
func Match(kind MatchKind, x Node, v *Literal) *MatchExpr {
	return &MatchExpr{Kind: kind, X: x, Value: v}
}

// rebind returns a copy of n with every field reference bound to param.
func rebind(n Node, param int) Node {
	switch n := n.(type) {
	case *BinaryExpr:
		return &BinaryExpr{Op: n.Op, X: rebind(n.X, param), Y: rebind(n.Y, param)}
	case *NotExpr:
		return &NotExpr{X: rebind(n.X, param)}
	case *FieldRef:
		c := *n
		c.Param = param
		return &c
	case *MatchExpr:
		return &MatchExpr{Kind: n.Kind, X: rebind(n.X, param), Value: n.Value}
	case *InExpr:
		return &InExpr{X: rebind(n.X, param), Values: n.Values, Elem: n.Elem}
	default:
		return n
	}
}
