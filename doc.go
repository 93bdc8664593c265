// Package quarry builds dialect-correct SQL from typed predicates and maps
// result rows back into structs.
//
// Predicates are written against typed fields of package expr and
// translated by the statement builder of package dialect/sql:
//
//	var (
//	    UserAge  = expr.F[User, int]("Age")
//	    UserName = expr.S[User]("Name")
//	)
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	query, params, err := sql.NewBuilder[User](drv).
//	    Where(UserAge.GTE(18).And(UserName.HasPrefix("a"))).
//	    OrderBy(UserName).
//	    Take(10).
//	    BuildSelect()
//	users, err := sql.Query[User](ctx, drv, query, params)
//
// Rows are mapped by package mapping, through mappers generated by the
// quarry command or through the reflective fallback. This package holds the
// error types shared by all of them.
package quarry
