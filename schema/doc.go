// Package schema resolves the table and column names of entity structs.
//
// An entity is a plain struct. Every exported field is a column named after
// the field, unless the db tag overrides it:
//
//	type User struct {
//	    ID        int64     `db:"id,identity"`
//	    Name      string    `db:"user_name"`
//	    CreatedAt time.Time `db:"created_at,readonly"`
//	    Secret    string    `db:"-"`
//	}
//
// The table name is the type name, pluralized on request, or the result of
// a TableName method:
//
//	func (Account) TableName() string { return "tbl_accounts" }
//
// Describe builds the descriptor table of a type once and caches it. Embedded
// structs without a column meaning are flattened, see package mixin for
// reusable ones.
package schema
