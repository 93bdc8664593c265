// Package mixin provides reusable column sets for entity structs.
//
// A mixin is a struct embedded in an entity. Its mapped fields are flattened
// into the entity as if declared in place, so they take part in selects,
// inserts, updates and row mapping:
//
//	type User struct {
//	    mixin.Identity
//	    mixin.Time
//	    Name string
//	}
//
// Each mixin comes with typed field constructors for building predicates
// against the embedding entity:
//
//	q := sql.NewBuilder[User](drv).Where(mixin.CreatedAt[User]().GT(since))
package mixin

import (
	"time"

	"github.com/syssam/quarry/expr"
)

// Identity adds an int64 primary key assigned by the database.
type Identity struct {
	ID int64 `db:"id,identity"`
}

// ID returns the typed field of Identity.ID for the entity E.
func ID[E any]() expr.Field[E, int64] { return expr.F[E, int64]("ID") }

// Time adds created_at and updated_at columns. created_at is set by the
// database and never written by quarry.
type Time struct {
	CreatedAt time.Time `db:"created_at,readonly"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CreateTime adds only the created_at column of Time.
type CreateTime struct {
	CreatedAt time.Time `db:"created_at,readonly"`
}

// UpdateTime adds only the updated_at column of Time.
type UpdateTime struct {
	UpdatedAt time.Time `db:"updated_at"`
}

// Touch sets UpdatedAt to now, truncated to microseconds.
func (t *Time) Touch() { t.UpdatedAt = now() }

// Touch sets UpdatedAt to now, truncated to microseconds.
func (t *UpdateTime) Touch() { t.UpdatedAt = now() }

// CreatedAt returns the typed field of the created_at column for the entity E.
func CreatedAt[E any]() expr.Field[E, time.Time] { return expr.F[E, time.Time]("CreatedAt") }

// UpdatedAt returns the typed field of the updated_at column for the entity E.
func UpdatedAt[E any]() expr.Field[E, time.Time] { return expr.F[E, time.Time]("UpdatedAt") }

// SoftDelete adds a nullable deleted_at column marking deleted rows.
type SoftDelete struct {
	DeletedAt *time.Time `db:"deleted_at"`
}

// Delete marks the row as deleted now.
func (s *SoftDelete) Delete() {
	t := now()
	s.DeletedAt = &t
}

// Deleted reports whether the row is marked as deleted.
func (s SoftDelete) Deleted() bool { return s.DeletedAt != nil }

// DeletedAt returns the typed field of the deleted_at column for the entity E.
func DeletedAt[E any]() expr.Field[E, *time.Time] { return expr.F[E, *time.Time]("DeletedAt") }

// NotDeleted returns a predicate matching the rows of E not marked as deleted.
func NotDeleted[E any]() expr.Predicate[E] { return DeletedAt[E]().IsNull() }

// Database timestamps keep microseconds at most.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
