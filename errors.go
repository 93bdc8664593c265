package quarry

import (
	"errors"
	"fmt"
)

// Sentinel errors for every contract violation raised by the query builder,
// the predicate translators and the column selector. All of them are
// deterministic functions of the input and are never worth retrying.
var (
	// ErrUnsupportedExpression is returned when a predicate uses an operator
	// or a node shape the translator does not recognize.
	ErrUnsupportedExpression = errors.New("quarry: unsupported expression")

	// ErrInvalidIdentifier is returned when a raw column or table identifier
	// fails the safe-identifier pattern.
	ErrInvalidIdentifier = errors.New("quarry: invalid identifier")

	// ErrOrderingState is returned when a secondary ordering term is added
	// before a primary one, or a primary term is added twice.
	ErrOrderingState = errors.New("quarry: invalid ordering state")

	// ErrPagingRequiresOrdering is returned when limit or offset is used on a
	// dialect that needs an explicit ORDER BY for deterministic paging.
	ErrPagingRequiresOrdering = errors.New("quarry: paging requires ordering")

	// ErrMissingPredicate is returned when UPDATE or DELETE is built without
	// a filter.
	ErrMissingPredicate = errors.New("quarry: missing predicate")

	// ErrInvalidProjection is returned when a column selection yields no
	// columns or references a field the declared table does not own.
	ErrInvalidProjection = errors.New("quarry: invalid projection")

	// ErrUnsupportedDialect is returned when a dialect-branching operation
	// runs against a dialect with no defined behavior.
	ErrUnsupportedDialect = errors.New("quarry: unsupported dialect")
)

// UnsupportedExpressionError reports the offending operator or node shape.
type UnsupportedExpressionError struct {
	Shape string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("quarry: unsupported expression: %s", e.Shape)
}

// Is reports whether the target error matches ErrUnsupportedExpression.
func (e *UnsupportedExpressionError) Is(err error) bool {
	return err == ErrUnsupportedExpression
}

// NewUnsupportedExpressionError returns an error for the given shape.
// Extra arguments are formatted into the shape with fmt.Sprintf.
func NewUnsupportedExpressionError(shape string, args ...any) *UnsupportedExpressionError {
	if len(args) > 0 {
		shape = fmt.Sprintf(shape, args...)
	}
	return &UnsupportedExpressionError{Shape: shape}
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	return err != nil && errors.Is(err, ErrUnsupportedExpression)
}

// InvalidIdentifierError reports the identifier that failed validation.
type InvalidIdentifierError struct {
	Ident string
}

// Error returns the error string.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("quarry: invalid identifier %q", e.Ident)
}

// Is reports whether the target error matches ErrInvalidIdentifier.
func (e *InvalidIdentifierError) Is(err error) bool {
	return err == ErrInvalidIdentifier
}

// NewInvalidIdentifierError returns a new InvalidIdentifierError.
func NewInvalidIdentifierError(ident string) *InvalidIdentifierError {
	return &InvalidIdentifierError{Ident: ident}
}

// IsInvalidIdentifier returns true if the error is an InvalidIdentifierError.
func IsInvalidIdentifier(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidIdentifier)
}

// OrderingStateError reports which ordering call was made out of order.
type OrderingStateError struct {
	Op     string // OrderBy, OrderByDesc, ThenBy or ThenByDesc.
	Reason string
}

// Error returns the error string.
func (e *OrderingStateError) Error() string {
	return fmt.Sprintf("quarry: %s: %s", e.Op, e.Reason)
}

// Is reports whether the target error matches ErrOrderingState.
func (e *OrderingStateError) Is(err error) bool {
	return err == ErrOrderingState
}

// NewOrderingStateError returns a new OrderingStateError.
func NewOrderingStateError(op, reason string) *OrderingStateError {
	return &OrderingStateError{Op: op, Reason: reason}
}

// IsOrderingState returns true if the error is an OrderingStateError.
func IsOrderingState(err error) bool {
	return err != nil && errors.Is(err, ErrOrderingState)
}

// PagingError is returned when paging is requested without ordering on a
// dialect using OFFSET/FETCH.
type PagingError struct {
	Dialect string
}

// Error returns the error string.
func (e *PagingError) Error() string {
	return fmt.Sprintf("quarry: %s: OFFSET/FETCH paging requires an ORDER BY term", e.Dialect)
}

// Is reports whether the target error matches ErrPagingRequiresOrdering.
func (e *PagingError) Is(err error) bool {
	return err == ErrPagingRequiresOrdering
}

// IsPagingRequiresOrdering returns true if the error is a PagingError.
func IsPagingRequiresOrdering(err error) bool {
	return err != nil && errors.Is(err, ErrPagingRequiresOrdering)
}

// MissingPredicateError is returned by UPDATE and DELETE builds without a filter.
type MissingPredicateError struct {
	Op    string // update or delete.
	Table string
}

// Error returns the error string.
func (e *MissingPredicateError) Error() string {
	return fmt.Sprintf("quarry: %s %s: refusing to run without a WHERE predicate", e.Op, e.Table)
}

// Is reports whether the target error matches ErrMissingPredicate.
func (e *MissingPredicateError) Is(err error) bool {
	return err == ErrMissingPredicate
}

// IsMissingPredicate returns true if the error is a MissingPredicateError.
func IsMissingPredicate(err error) bool {
	return err != nil && errors.Is(err, ErrMissingPredicate)
}

// InvalidProjectionError reports a column selection that cannot be resolved.
type InvalidProjectionError struct {
	Table  string
	Field  string // Empty when the registration yielded no columns.
	Reason string
}

// Error returns the error string.
func (e *InvalidProjectionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("quarry: invalid projection on %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("quarry: invalid projection %s.%s: %s", e.Table, e.Field, e.Reason)
}

// Is reports whether the target error matches ErrInvalidProjection.
func (e *InvalidProjectionError) Is(err error) bool {
	return err == ErrInvalidProjection
}

// IsInvalidProjection returns true if the error is an InvalidProjectionError.
func IsInvalidProjection(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidProjection)
}

// UnsupportedDialectError reports the dialect and the operation that
// branched on it.
type UnsupportedDialectError struct {
	Dialect string
	Op      string
}

// Error returns the error string.
func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("quarry: %s is not defined for dialect %q", e.Op, e.Dialect)
}

// Is reports whether the target error matches ErrUnsupportedDialect.
func (e *UnsupportedDialectError) Is(err error) bool {
	return err == ErrUnsupportedDialect
}

// NewUnsupportedDialectError returns a new UnsupportedDialectError.
func NewUnsupportedDialectError(dialect, op string) *UnsupportedDialectError {
	return &UnsupportedDialectError{Dialect: dialect, Op: op}
}

// IsUnsupportedDialect returns true if the error is an UnsupportedDialectError.
func IsUnsupportedDialect(err error) bool {
	return err != nil && errors.Is(err, ErrUnsupportedDialect)
}
