package expr

import "reflect"

// Column is a typed reference to a field of an entity. It is accepted by
// projections and ordering terms.
type Column interface {
	Ref() *FieldRef
}

// Field is a generic field of the entity E holding values of type V. The
// string value is the Go field name.
//
// Usage:
//
//	var (
//		UserID   = expr.F[User, int64]("ID")
//		UserName = expr.S[User]("Name")
//	)
//	b.Where(expr.And(UserID.GT(10), UserName.Contains("ann")))
type Field[E, V any] string

// F returns the field name of E with values of type V.
func F[E, V any](name string) Field[E, V] { return Field[E, V](name) }

// Name returns the Go field name.
func (f Field[E, V]) Name() string { return string(f) }

// Ref returns a reference to the field bound to parameter 0.
func (f Field[E, V]) Ref() *FieldRef {
	return &FieldRef{Entity: reflect.TypeFor[E](), Field: string(f)}
}

func (f Field[E, V]) cmp(op Op, v V) Predicate[E] {
	return Predicate[E]{root: &BinaryExpr{Op: op, X: f.Ref(), Y: LitOf(v)}}
}

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[E, V]) EQ(v V) Predicate[E] { return f.cmp(OpEQ, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[E, V]) NEQ(v V) Predicate[E] { return f.cmp(OpNEQ, v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[E, V]) GT(v V) Predicate[E] { return f.cmp(OpGT, v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[E, V]) GTE(v V) Predicate[E] { return f.cmp(OpGTE, v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[E, V]) LT(v V) Predicate[E] { return f.cmp(OpLT, v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[E, V]) LTE(v V) Predicate[E] { return f.cmp(OpLTE, v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[E, V]) In(vs ...V) Predicate[E] {
	n := &InExpr{X: f.Ref(), Elem: reflect.TypeFor[V](), Values: make([]*Literal, len(vs))}
	for i, v := range vs {
		n.Values[i] = LitOf(v)
	}
	return Predicate[E]{root: n}
}

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[E, V]) NotIn(vs ...V) Predicate[E] { return Not(f.In(vs...)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[E, V]) IsNull() Predicate[E] {
	return Predicate[E]{root: &BinaryExpr{Op: OpEQ, X: f.Ref(), Y: Null()}}
}

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[E, V]) NotNull() Predicate[E] {
	return Predicate[E]{root: &BinaryExpr{Op: OpNEQ, X: f.Ref(), Y: Null()}}
}

// EQField returns a predicate that compares two fields of the same entity.
func (f Field[E, V]) EQField(o Field[E, V]) Predicate[E] {
	return Predicate[E]{root: &BinaryExpr{Op: OpEQ, X: f.Ref(), Y: o.Ref()}}
}

// String is a string field of the entity E with pattern predicates.
type String[E any] struct {
	Field[E, string]
}

// S returns the string field name of E.
func S[E any](name string) String[E] { return String[E]{Field[E, string](name)} }

// Contains returns a predicate that checks if the field contains the given substring.
func (f String[E]) Contains(v string) Predicate[E] { return f.match(MatchContains, v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f String[E]) HasPrefix(v string) Predicate[E] { return f.match(MatchPrefix, v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f String[E]) HasSuffix(v string) Predicate[E] { return f.match(MatchSuffix, v) }

func (f String[E]) match(k MatchKind, v string) Predicate[E] {
	return Predicate[E]{root: &MatchExpr{Kind: k, X: f.Ref(), Value: LitOf(v)}}
}

// NullString is a nullable string field of the entity E. A nil pattern
// value matches against NULL.
type NullString[E any] struct {
	Field[E, *string]
}

// NS returns the nullable string field name of E.
func NS[E any](name string) NullString[E] { return NullString[E]{Field[E, *string](name)} }

// Contains returns a predicate that checks if the field contains the given substring.
func (f NullString[E]) Contains(v *string) Predicate[E] { return f.match(MatchContains, v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f NullString[E]) HasPrefix(v *string) Predicate[E] { return f.match(MatchPrefix, v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f NullString[E]) HasSuffix(v *string) Predicate[E] { return f.match(MatchSuffix, v) }

func (f NullString[E]) match(k MatchKind, v *string) Predicate[E] {
	return Predicate[E]{root: &MatchExpr{Kind: k, X: f.Ref(), Value: LitOf(v)}}
}
