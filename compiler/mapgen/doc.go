// Package mapgen generates precompiled row mappers.
//
// ParseFile reads entity structs from Go source, honoring the db struct tag
// rules of package schema, and Generate emits an init function registering
// a mapping.Func per struct:
//
//	f, err := mapgen.ParseFile("models.go", nil, "User", "Post")
//	if err != nil {
//		return err
//	}
//	src, err := mapgen.Format("models_mapping.go", mapgen.Generate(f))
//
// Writer runs several such tasks in parallel and writes the results.
package mapgen
