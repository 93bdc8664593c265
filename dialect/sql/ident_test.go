package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry"
)

func TestValidateIdentifier(t *testing.T) {
	valid := []string{
		"name",
		"schema.table",
		"`col`",
		`"col"`,
		"[col]",
		"*",
		"Users.*",
		"[dbo].[Order Details]",
		"db.schema.table",
		"_col1",
	}
	for _, s := range valid {
		assert.NoError(t, ValidateIdentifier(s), s)
	}
	invalid := []string{
		"",
		"col; DROP TABLE x",
		"col--",
		"a b",
		"a.",
		".a",
		"col'",
		"[col",
		"`col\"",
		"a.*.b",
		"(SELECT 1)",
		"col/*",
		"a,b",
	}
	for _, s := range invalid {
		err := ValidateIdentifier(s)
		assert.Error(t, err, s)
		assert.True(t, quarry.IsInvalidIdentifier(err), s)
	}
}

func TestSessionVarName(t *testing.T) {
	assert.True(t, sessionVarRe.MatchString("search_path"))
	assert.True(t, sessionVarRe.MatchString("app.tenant_id"))
	assert.False(t, sessionVarRe.MatchString("x; DROP TABLE users"))
}
