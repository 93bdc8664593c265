package expr

import "reflect"

// Predicate is a boolean expression over the entity E. The zero value is
// the empty predicate.
type Predicate[E any] struct {
	root Node
}

// Where wraps a raw node into a predicate over E. References in n must be
// bound to parameter 0.
func Where[E any](n Node) Predicate[E] { return Predicate[E]{root: n} }

// Node returns the root node of the predicate, nil for the empty predicate.
func (p Predicate[E]) Node() Node { return p.root }

// IsZero reports whether p is the empty predicate.
func (p Predicate[E]) IsZero() bool { return p.root == nil }

// And returns p AND q.
func (p Predicate[E]) And(q Predicate[E]) Predicate[E] { return And(p, q) }

// Or returns p OR q.
func (p Predicate[E]) Or(q Predicate[E]) Predicate[E] { return Or(p, q) }

// And groups predicates with the AND operator. Empty predicates are skipped
// and the remaining ones are folded to the left.
func And[E any](ps ...Predicate[E]) Predicate[E] {
	return Predicate[E]{root: fold(OpAnd, nodes(ps))}
}

// Or groups predicates with the OR operator.
func Or[E any](ps ...Predicate[E]) Predicate[E] {
	return Predicate[E]{root: fold(OpOr, nodes(ps))}
}

// Not negates the predicate.
func Not[E any](p Predicate[E]) Predicate[E] {
	if p.root == nil {
		return p
	}
	return Predicate[E]{root: &NotExpr{X: p.root}}
}

func nodes[E any](ps []Predicate[E]) []Node {
	ns := make([]Node, 0, len(ps))
	for _, p := range ps {
		if p.root != nil {
			ns = append(ns, p.root)
		}
	}
	return ns
}

func fold(op Op, ns []Node) Node {
	if len(ns) == 0 {
		return nil
	}
	root := ns[0]
	for _, n := range ns[1:] {
		root = &BinaryExpr{Op: op, X: root, Y: n}
	}
	return root
}

// Joiner is a join condition whose left side is the entity L. It is
// implemented by On.
type Joiner[L any] interface {
	Node() Node
	// Right returns the entity type of the joined table.
	Right() reflect.Type
	left(L)
}

// On is a join condition between the main entity L (parameter 0) and the
// joined entity R (parameter 1).
type On[L, R any] struct {
	root Node
}

// Node returns the root node of the condition.
func (o On[L, R]) Node() Node { return o.root }

// Right returns the entity type of the joined table.
func (o On[L, R]) Right() reflect.Type { return reflect.TypeFor[R]() }

func (On[L, R]) left(L) {}

// And returns o AND c.
func (o On[L, R]) And(c On[L, R]) On[L, R] { return JoinAnd(o, c) }

// Or returns o OR c.
func (o On[L, R]) Or(c On[L, R]) On[L, R] { return JoinOr(o, c) }

// JoinEQ returns the condition l = r.
func JoinEQ[L, R, V any](l Field[L, V], r Field[R, V]) On[L, R] {
	return JoinCmp(OpEQ, l, r)
}

// JoinCmp returns the condition l <op> r.
func JoinCmp[L, R, V any](op Op, l Field[L, V], r Field[R, V]) On[L, R] {
	right := r.Ref()
	right.Param = 1
	return On[L, R]{root: &BinaryExpr{Op: op, X: l.Ref(), Y: right}}
}

// JoinAnd groups join conditions with the AND operator.
func JoinAnd[L, R any](cs ...On[L, R]) On[L, R] {
	return On[L, R]{root: fold(OpAnd, joinNodes(cs))}
}

// JoinOr groups join conditions with the OR operator.
func JoinOr[L, R any](cs ...On[L, R]) On[L, R] {
	return On[L, R]{root: fold(OpOr, joinNodes(cs))}
}

// JoinWhereLeft lifts a predicate over the main entity into a join condition.
func JoinWhereLeft[L, R any](p Predicate[L]) On[L, R] {
	return On[L, R]{root: p.root}
}

// JoinWhereRight lifts a predicate over the joined entity into a join
// condition, rebinding its field references to parameter 1.
func JoinWhereRight[L, R any](p Predicate[R]) On[L, R] {
	if p.root == nil {
		return On[L, R]{}
	}
	return On[L, R]{root: rebind(p.root, 1)}
}

// JoinNode wraps a raw node into a join condition.
func JoinNode[L, R any](n Node) On[L, R] { return On[L, R]{root: n} }

func joinNodes[L, R any](cs []On[L, R]) []Node {
	ns := make([]Node, 0, len(cs))
	for _, c := range cs {
		if c.root != nil {
			ns = append(ns, c.root)
		}
	}
	return ns
}
