// Package expr provides the predicate syntax tree consumed by the SQL
// translators, together with generic typed builders for constructing it.
//
// The tree is a closed set of node types. Callers normally build it through
// the typed field descriptors:
//
//	var (
//		UserAge  = expr.F[User, int]("Age")
//		UserName = expr.S[User]("Name")
//		PostUser = expr.F[Post, int64]("UserID")
//		UserID   = expr.F[User, int64]("ID")
//	)
//
//	p := expr.Or(UserAge.GTE(18), UserName.HasPrefix("adm"))
//	on := expr.JoinEQ(UserID, PostUser)
//
// Field names are Go struct field names; column names are resolved by the
// translators through package schema.
package expr
