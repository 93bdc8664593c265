package sql

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
)

func TestRebind(t *testing.T) {
	params := []dialect.Param{
		{Name: "p0", Value: "a"},
		{Name: "p1", Value: 2},
	}
	query := "SELECT * FROM t WHERE (x = @p0) AND (y > @p1) OR (z = @p0)"
	tests := []struct {
		dialect string
		want    string
		args    []any
	}{
		{dialect.Postgres, "SELECT * FROM t WHERE (x = $1) AND (y > $2) OR (z = $1)", []any{"a", 2}},
		{dialect.MySQL, "SELECT * FROM t WHERE (x = ?) AND (y > ?) OR (z = ?)", []any{"a", 2, "a"}},
		{dialect.SQLite, "SELECT * FROM t WHERE (x = ?) AND (y > ?) OR (z = ?)", []any{"a", 2, "a"}},
		{dialect.SQLServer, query, []any{sql.Named("p0", "a"), sql.Named("p1", 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			got, args, err := Rebind(tt.dialect, query, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRebindQuoted(t *testing.T) {
	params := []dialect.Param{{Name: "p0", Value: 1}, {Name: "p1", Value: 2}}
	tests := []struct {
		query string
		want  string
		args  []any
	}{
		{"SELECT '@p0', @p1", "SELECT '@p0', $1", []any{2}},
		{`SELECT "@p0" FROM t WHERE x = @p1`, `SELECT "@p0" FROM t WHERE x = $1`, []any{2}},
		{"SELECT [@p0], `@p0` FROM t", "SELECT [@p0], `@p0` FROM t", nil},
		{"SELECT 'it''s @p0' WHERE x = @p1", "SELECT 'it''s @p0' WHERE x = $1", []any{2}},
		{"SELECT @@ROWCOUNT, @p0", "SELECT @@ROWCOUNT, $1", []any{1}},
		{"SELECT @param, @p, @p0x, @p1", "SELECT @param, @p, @p0x, $1", []any{2}},
		{"SELECT 'unterminated @p0", "SELECT 'unterminated @p0", nil},
		{"SELECT @p1, @p0", "SELECT $1, $2", []any{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, args, err := Rebind(dialect.Postgres, tt.query, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRebindErrors(t *testing.T) {
	_, _, err := Rebind(dialect.Postgres, "SELECT @p3", []dialect.Param{{Name: "p0", Value: 1}})
	assert.ErrorContains(t, err, "@p3")

	_, _, err = Rebind("oracle", "SELECT 1", nil)
	assert.True(t, quarry.IsUnsupportedDialect(err))

	got, args, err := Rebind(dialect.Postgres, "SELECT @p10, @p1", []dialect.Param{{Name: "p1", Value: "one"}, {Name: "p10", Value: "ten"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1, $2", got)
	assert.Equal(t, []any{"ten", "one"}, args)
}
