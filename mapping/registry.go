package mapping

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/syssam/quarry/schema"
)

// Func is a precompiled mapper from a row to T.
type Func[T any] func(Row) (T, error)

// registry holds the precompiled mappers. Entries are stored whole, so a
// lookup never observes a partially registered mapper.
var registry sync.Map // reflect.Type -> Func[T]

// Register installs the precompiled mapper of T. A later registration for
// the same type replaces it. A nil fn removes the registration. Register is
// safe for concurrent use with Map.
func Register[T any](fn Func[T]) {
	if fn == nil {
		Unregister[T]()
		return
	}
	registry.Store(reflect.TypeFor[T](), fn)
}

// Unregister removes the precompiled mapper of T.
func Unregister[T any]() {
	registry.Delete(reflect.TypeFor[T]())
}

// Registered reports whether a precompiled mapper is registered for T.
func Registered[T any]() bool {
	_, ok := registry.Load(reflect.TypeFor[T]())
	return ok
}

// Map converts the row to T with the precompiled mapper of T when one is
// registered, and with Fallback otherwise. Both produce the same value for
// the same row.
func Map[T any](r Row) (T, error) {
	if fn, ok := registry.Load(reflect.TypeFor[T]()); ok {
		return fn.(Func[T])(r)
	}
	return Fallback[T](r)
}

// Fallback converts the row to T through the cached descriptor table of T.
// T must be a struct or a pointer to a struct. Every mapped field is bound
// from the column of the same name (case-insensitive); missing columns and
// NULL values leave the zero value.
func Fallback[T any](r Row) (T, error) {
	var zero T
	typ := reflect.TypeFor[T]()
	e, err := schema.Describe(typ)
	if err != nil {
		return zero, fmt.Errorf("mapping: %w", err)
	}
	v := reflect.New(e.Type).Elem()
	for _, f := range e.Fields {
		if err := Bind(r, f.Column, v.FieldByIndex(f.Index).Addr().Interface()); err != nil {
			return zero, err
		}
	}
	if typ.Kind() == reflect.Pointer {
		// Only a single level of pointer is supported.
		if typ.Elem() != e.Type {
			return zero, fmt.Errorf("mapping: unsupported type %s", typ)
		}
		return v.Addr().Interface().(T), nil
	}
	return v.Interface().(T), nil
}
