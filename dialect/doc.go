// Package dialect names the supported SQL dialects and defines what the
// statement builder needs from its execution collaborator.
//
// # Supported Dialects
//
//	dialect.Postgres  = "postgres"   // ILIKE, RETURNING, LIMIT/OFFSET
//	dialect.SQLServer = "sqlserver"  // OUTPUT INSERTED, OFFSET/FETCH
//	dialect.MySQL     = "mysql"      // LAST_INSERT_ID(), LIMIT/OFFSET
//	dialect.SQLite    = "sqlite"     // RETURNING, LIMIT/OFFSET
//
// Any other name is accepted by Capabilities implementations but makes every
// dialect-dependent construct fail with an unsupported dialect error.
//
// # Capabilities
//
// Capabilities reports the active dialect, whether table names are
// pluralized, and builds bound parameters. The sql.Driver implements it for
// real connections; Static builds statements without one:
//
//	caps := dialect.Static{Name: dialect.Postgres, Pluralize: true}
//	query, params, err := sql.NewBuilder[User](caps).BuildSelect()
package dialect
