// Package sql builds and executes parameterized SQL statements over typed
// entities.
//
// Statements are generated for a set of dialects (PostgreSQL, SQL Server,
// MySQL, SQLite) selected through the dialect.Capabilities collaborator,
// usually a *Driver:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//		return err
//	}
//	defer drv.Close()
//
// # Builder
//
// Builder accumulates the parts of a statement over the entity T. Every
// value reaches the statement as a named placeholder (@p0, @p1, ...):
//
//	query, params, err := sql.NewBuilder[User](drv).
//		Where(expr.And(UserAge.GTE(18), UserName.Contains("ann"))).
//		OrderBy(UserName).
//		ThenByDesc(UserID).
//		Take(10).
//		Skip(20).
//		BuildSelect()
//	// SELECT * FROM Users WHERE ((Users.Age >= @p0) AND (Users.Name ILIKE @p1))
//	//   ORDER BY Users.Name, Users.ID DESC LIMIT 10 OFFSET 20
//
// Contract violations (an ordering call out of order, a join the dialect
// cannot express, an invalid identifier) are recorded by the fluent calls
// and returned by every Build method. UPDATE and DELETE refuse to build
// without a predicate.
//
// # Joins
//
// Join conditions are typed over both entities. A table joined more than
// once is aliased with a numeric suffix:
//
//	sql.NewBuilder[Employee](drv).
//		Join(sql.LeftJoin, expr.JoinEQ(EmployeeManagerID, EmployeeID)).
//		BuildSelect()
//	// SELECT * FROM Employees LEFT JOIN Employees AS Employees_1
//	//   ON (Employees.ManagerID = Employees_1.ID)
//
// # Execution
//
// Driver, Tx and the StatsDriver and DebugDriver wrappers rebind the
// placeholders to the native form of the dialect before execution. Query
// and First map result rows through package mapping:
//
//	users, err := sql.Query[User](ctx, drv, query, params)
package sql
