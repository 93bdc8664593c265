// Package mapping converts result rows into typed structs.
//
// A type is mapped either by a precompiled mapper installed with Register,
// usually generated by `quarry gen`, or by the reflective Fallback built
// from the cached descriptor table of package schema. Both paths assign
// columns through Bind and Assign, so they produce identical values for
// identical rows:
//
//	func init() {
//		mapping.Register(func(r mapping.Row) (User, error) {
//			var e User
//			if err := mapping.Bind(r, "ID", &e.ID); err != nil {
//				return User{}, err
//			}
//			if err := mapping.Bind(r, "user_name", &e.Name); err != nil {
//				return User{}, err
//			}
//			return e, nil
//		})
//	}
//
// The registry is process-wide and safe for concurrent registration and
// lookup.
package mapping
