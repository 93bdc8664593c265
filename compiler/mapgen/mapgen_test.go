package mapgen

import (
	"context"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const models = `package models

import (
	"bytes"
	"database/sql"
	"time"

	m "github.com/syssam/quarry/schema/mixin"
)

type Base struct {
	ID        int64     ` + "`db:\"id,identity\"`" + `
	CreatedAt time.Time ` + "`db:\"created_at,readonly\"`" + `
}

type User struct {
	Base
	Name   string ` + "`db:\"user_name\"`" + `
	Email  *string
	secret string
	Skip   string ` + "`db:\"-\" json:\"skip\"`" + `
	A, b   int
	time.Time
}

type Code string

type Pair[T any] struct{ V T }

type hidden struct{ X int }

type Dup struct {
	Name  string
	Alias string ` + "`db:\"name\"`" + `
}

type Remote struct {
	bytes.Buffer
}

type Mixed struct {
	m.Identity
	*m.SoftDelete
	m.Time ` + "`db:\"time\"`" + `
	sql.NullString
	Code
}

func helper() {
	type Local struct{ Y int }
	_ = Local{}
}
`

func columns(s *Struct) map[string]string {
	m := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		m[f.Selector()] = f.Column
	}
	return m
}

func TestParseFile(t *testing.T) {
	f, err := ParseFile("models.go", models, "User")
	require.NoError(t, err)
	assert.Equal(t, "models", f.Package)
	require.Len(t, f.Structs, 1)
	u := f.Structs[0]
	assert.Equal(t, "User", u.Name)
	assert.Equal(t, map[string]string{
		"Base.ID":        "id",
		"Base.CreatedAt": "created_at",
		"Name":           "user_name",
		"Email":          "Email",
		"A":              "A",
		"Time":           "Time",
	}, columns(u))
	assert.Equal(t, []string{"Base", "ID"}, u.Fields[0].Path)
	assert.Equal(t, "Time", u.Fields[len(u.Fields)-1].Selector())
}

func TestParseFile_Embedded(t *testing.T) {
	f, err := ParseFile("models.go", models, "Mixed")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Identity.ID": "id",
		"SoftDelete":  "SoftDelete",
		"Time":        "time",
		"NullString":  "NullString",
		"Code":        "Code",
	}, columns(f.Structs[0]))
}

func TestParseFile_AllStructs(t *testing.T) {
	f, err := ParseFile("models.go", `package models
type A struct{ X int }
type b struct{ Y int }
type C[T any] struct{ V T }
type D int
type E struct{ Z string }
`)
	require.NoError(t, err)
	names := make([]string, 0, len(f.Structs))
	for _, s := range f.Structs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"A", "E"}, names)
}

func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name, typ, want string
	}{
		{"missing", "Nope", "type Nope not found"},
		{"not struct", "Code", "type Code is not a struct"},
		{"generic", "Pair", "generic type Pair is not supported"},
		{"local", "Local", "type Local not found"},
		{"duplicate column", "Dup", `fields Name and Alias map to the same column "name"`},
		{"remote embed", "Remote", "embedded type bytes.Buffer cannot be resolved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile("models.go", models, tt.typ)
			assert.ErrorContains(t, err, tt.want)
		})
	}
	_, err := ParseFile("broken.go", "package models\ntype X struct {")
	assert.ErrorContains(t, err, "mapgen: parse broken.go")
}

func TestGenerate(t *testing.T) {
	f, err := ParseFile("models.go", models, "User", "Base", "User")
	require.NoError(t, err)
	require.Len(t, f.Structs, 2)

	src, err := Format("models_mapping.go", Generate(f))
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "// "+Header)
	assert.Contains(t, out, "package models")
	assert.Contains(t, out, `"github.com/syssam/quarry/mapping"`)
	assert.Contains(t, out, "func init() {")
	assert.Contains(t, out, "mapping.Register(func(r mapping.Row) (User, error) {")
	assert.Contains(t, out, "mapping.Register(func(r mapping.Row) (Base, error) {")
	assert.Contains(t, out, `if err := mapping.Bind(r, "id", &e.Base.ID); err != nil {`)
	assert.Contains(t, out, `if err := mapping.Bind(r, "user_name", &e.Name); err != nil {`)
	assert.Contains(t, out, `if err := mapping.Bind(r, "Time", &e.Time); err != nil {`)
	assert.Contains(t, out, "return User{}, err")
	assert.NotContains(t, out, "return e, err")
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "Skip")

	_, err = parser.ParseFile(token.NewFileSet(), "models_mapping.go", src, parser.AllErrors)
	assert.NoError(t, err)
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "models.go")
	require.NoError(t, os.WriteFile(input, []byte(models), 0o644))

	w := NewWriter(WithWorkers(2), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	err := w.Run(context.Background(),
		Task{Input: input, Types: []string{"User"}},
		Task{Input: input, Output: filepath.Join(dir, "gen", "base_mapping.go"), Types: []string{"Base"}},
	)
	require.NoError(t, err)

	src, err := os.ReadFile(filepath.Join(dir, "models_mapping.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "(User, error)")
	src, err = os.ReadFile(filepath.Join(dir, "gen", "base_mapping.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "(Base, error)")

	m := w.Metrics()
	assert.Equal(t, 2, m.FilesGenerated)
	assert.Equal(t, 2, m.Structs)
	assert.Positive(t, m.TotalBytes)

	err = w.Run(context.Background(), Task{Input: input, Types: []string{"Code"}})
	assert.ErrorContains(t, err, "not a struct")

	empty := filepath.Join(dir, "empty.go")
	require.NoError(t, os.WriteFile(empty, []byte("package models\n"), 0o644))
	err = w.Run(context.Background(), Task{Input: empty})
	assert.ErrorContains(t, err, "no struct types")
	assert.Equal(t, 2, w.Metrics().FilesGenerated)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "models_mapping.go", OutputPath("models.go"))
	assert.Equal(t, filepath.Join("a", "b_mapping.go"), OutputPath(filepath.Join("a", "b.go")))
}
