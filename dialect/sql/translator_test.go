package sql

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema/field"
)

func TestTranslateComparison(t *testing.T) {
	tests := []struct {
		p    expr.Predicate[User]
		want string
	}{
		{UserAge.EQ(18), "(Users.Age = @p0)"},
		{UserAge.NEQ(18), "(Users.Age <> @p0)"},
		{UserAge.GT(18), "(Users.Age > @p0)"},
		{UserAge.GTE(18), "(Users.Age >= @p0)"},
		{UserAge.LT(18), "(Users.Age < @p0)"},
		{UserAge.LTE(18), "(Users.Age <= @p0)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			frag, err := TranslatePredicate(pgCaps, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, frag.SQL)
			assert.Equal(t, []dialect.Param{{Name: "p0", Value: 18, Type: field.TypeInt}}, frag.Params)
		})
	}
}

func TestTranslateMatch(t *testing.T) {
	tests := []struct {
		caps  dialect.Static
		p     expr.Predicate[User]
		want  string
		value string
	}{
		{pgCaps, UserName.Contains("ann"), "(Users.Name ILIKE @p0)", "%ann%"},
		{pgCaps, UserName.HasPrefix("ann"), "(Users.Name ILIKE @p0)", "ann%"},
		{pgCaps, UserName.HasSuffix("ann"), "(Users.Name ILIKE @p0)", "%ann"},
		{mssqlCaps, UserName.Contains("ann"), "(Users.Name LIKE @p0)", "%ann%"},
		{mysqlCaps, UserName.HasPrefix("ann"), "(Users.Name LIKE @p0)", "ann%"},
		{sqliteCaps, UserName.HasSuffix("ann"), "(Users.Name LIKE @p0)", "%ann"},
	}
	for _, tt := range tests {
		t.Run(tt.caps.Name+"/"+tt.value, func(t *testing.T) {
			frag, err := TranslatePredicate(tt.caps, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, frag.SQL)
			require.Len(t, frag.Params, 1)
			assert.Equal(t, tt.value, frag.Params[0].Value)
			assert.Equal(t, field.TypeString, frag.Params[0].Type)
		})
	}

	t.Run("NullPattern", func(t *testing.T) {
		frag, err := TranslatePredicate(mysqlCaps, UserEmail.Contains(nil))
		require.NoError(t, err)
		assert.Equal(t, "(Users.Email LIKE NULL)", frag.SQL)
		assert.Empty(t, frag.Params)
	})

	t.Run("NullableValue", func(t *testing.T) {
		v := "x.io"
		frag, err := TranslatePredicate(pgCaps, UserEmail.HasSuffix(&v))
		require.NoError(t, err)
		assert.Equal(t, "(Users.Email ILIKE @p0)", frag.SQL)
		assert.Equal(t, "%x.io", frag.Params[0].Value)
	})

	t.Run("UnknownDialect", func(t *testing.T) {
		_, err := TranslatePredicate(unknownCaps, UserName.Contains("ann"))
		assert.True(t, quarry.IsUnsupportedDialect(err))
	})
}

func TestTranslateNull(t *testing.T) {
	frag, err := TranslatePredicate(pgCaps, UserEmail.IsNull())
	require.NoError(t, err)
	assert.Equal(t, "(Users.Email IS NULL)", frag.SQL)
	assert.Empty(t, frag.Params)

	frag, err = TranslatePredicate(pgCaps, UserEmail.NotNull())
	require.NoError(t, err)
	assert.Equal(t, "(Users.Email IS NOT NULL)", frag.SQL)

	frag, err = TranslatePredicate(pgCaps, UserEmail.EQ(nil))
	require.NoError(t, err)
	assert.Equal(t, "(Users.Email IS NULL)", frag.SQL)

	frag, err = TranslatePredicate(pgCaps, expr.Where[User](expr.Cmp(expr.OpNEQ, expr.Null(), UserName.Ref())))
	require.NoError(t, err)
	assert.Equal(t, "(Users.Name IS NOT NULL)", frag.SQL)

	_, err = TranslatePredicate(pgCaps, expr.Where[User](expr.Cmp(expr.OpGT, UserName.Ref(), expr.Null())))
	assert.True(t, quarry.IsUnsupportedExpression(err))
}

func TestTranslateIn(t *testing.T) {
	frag, err := TranslatePredicate(pgCaps, UserID.In(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "Users.ID IN (@p0, @p1, @p2)", frag.SQL)
	assert.Equal(t, []dialect.Param{
		{Name: "p0", Value: int64(1), Type: field.TypeInt64},
		{Name: "p1", Value: int64(2), Type: field.TypeInt64},
		{Name: "p2", Value: int64(3), Type: field.TypeInt64},
	}, frag.Params)

	frag, err = TranslatePredicate(pgCaps, UserID.In())
	require.NoError(t, err)
	assert.Equal(t, "(1 = 0)", frag.SQL)
	assert.Empty(t, frag.Params)

	frag, err = TranslatePredicate(pgCaps, UserID.NotIn(7))
	require.NoError(t, err)
	assert.Equal(t, "NOT (Users.ID IN (@p0))", frag.SQL)

	raw := &expr.InExpr{X: UserName.Ref(), Values: []*expr.Literal{expr.Lit("a"), expr.Lit(1)}}
	frag, err = TranslatePredicate(pgCaps, expr.Where[User](raw))
	require.NoError(t, err)
	assert.Equal(t, field.TypeString, frag.Params[0].Type)
	assert.Equal(t, field.TypeInt, frag.Params[1].Type)
}

func TestTranslateLogical(t *testing.T) {
	frag, err := TranslatePredicate(pgCaps, expr.And(UserAge.GT(18), UserName.EQ("ann")))
	require.NoError(t, err)
	assert.Equal(t, "((Users.Age > @p0) AND (Users.Name = @p1))", frag.SQL)
	assert.Equal(t, "p1", frag.Params[1].Name)
	assert.Equal(t, "ann", frag.Params[1].Value)

	frag, err = TranslatePredicate(pgCaps, expr.Or(UserAge.LT(1), UserAge.GT(2), UserID.EQ(3)))
	require.NoError(t, err)
	assert.Equal(t, "(((Users.Age < @p0) OR (Users.Age > @p1)) OR (Users.ID = @p2))", frag.SQL)

	frag, err = TranslatePredicate(pgCaps, expr.Not(UserAge.GT(18).And(UserEmail.IsNull())))
	require.NoError(t, err)
	assert.Equal(t, "NOT (((Users.Age > @p0) AND (Users.Email IS NULL)))", frag.SQL)

	frag, err = TranslatePredicate(pgCaps, expr.Where[User](expr.Cmp(expr.OpEQ, UserID.Ref(), UserAge.Ref())))
	require.NoError(t, err)
	assert.Equal(t, "(Users.ID = Users.Age)", frag.SQL)
	assert.Empty(t, frag.Params)
}

func TestTranslateUnsupported(t *testing.T) {
	tests := map[string]expr.Node{
		"empty":          nil,
		"bare field":     UserAge.Ref(),
		"bare literal":   expr.Lit(true),
		"unknown op":     expr.Cmp(expr.Op(42), UserAge.Ref(), expr.Lit(1)),
		"invalid op":     expr.Cmp(expr.OpInvalid, UserAge.Ref(), expr.Lit(1)),
		"logical leaf":   expr.Cmp(expr.OpAnd, UserAge.Ref(), expr.Lit(1)),
		"nested compare": expr.Cmp(expr.OpEQ, expr.Cmp(expr.OpEQ, UserAge.Ref(), expr.Lit(1)), expr.Lit(true)),
		"null literal":   expr.Cmp(expr.OpEQ, expr.Lit(1), expr.Null()),
		"unknown field":  expr.F[User, int]("Missing").EQ(1).Node(),
		"foreign field":  PostTitle.EQ("x").Node(),
		"match literal":  expr.Match(expr.MatchContains, expr.Lit("a"), expr.Lit("b")),
		"match kind":     expr.Match(expr.MatchInvalid, UserName.Ref(), expr.Lit("b")),
		"match int":      expr.Match(expr.MatchPrefix, UserName.Ref(), expr.Lit(1)),
		"in literal":     &expr.InExpr{X: expr.Lit(1), Values: []*expr.Literal{expr.Lit(1)}},
		"param 1":        &expr.BinaryExpr{Op: expr.OpEQ, X: &expr.FieldRef{Param: 1, Field: "Age"}, Y: expr.Lit(1)},
	}
	for name, n := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := TranslatePredicate(pgCaps, expr.Where[User](n))
			require.Error(t, err)
			assert.True(t, quarry.IsUnsupportedExpression(err), err.Error())
		})
	}
}

func TestTranslatorSingleUse(t *testing.T) {
	tr := NewTranslator(pgCaps, "u", reflect.TypeFor[User]())
	frag, err := tr.Translate(UserAge.GT(1).Node())
	require.NoError(t, err)
	assert.Equal(t, "(u.Age > @p0)", frag.SQL)

	_, err = tr.Translate(UserAge.GT(2).Node())
	assert.True(t, quarry.IsUnsupportedExpression(err))
}

func TestTranslateJoin(t *testing.T) {
	left := Binding{Alias: "Users", Entity: reflect.TypeFor[User]()}
	right := Binding{Alias: "p", Entity: reflect.TypeFor[*Post]()}

	on := expr.JoinEQ(UserID, PostUserID).And(expr.JoinWhereRight[User, Post](PostTitle.HasPrefix("go")))
	frag, err := NewJoinTranslator(pgCaps, left, right).Translate(on.Node())
	require.NoError(t, err)
	assert.Equal(t, "((Users.ID = p.UserID) AND (p.Title ILIKE @p0))", frag.SQL)
	assert.Equal(t, "go%", frag.Params[0].Value)

	swapped := expr.JoinNode[User, Post](expr.Cmp(expr.OpEQ, PostUserID.Ref(), UserID.Ref()))
	_, err = NewJoinTranslator(pgCaps, left, right).Translate(swapped.Node())
	assert.True(t, quarry.IsUnsupportedExpression(err))
}

func TestTranslateTableNames(t *testing.T) {
	frag, err := TranslatePredicate(dialect.Static{Name: dialect.Postgres}, UserAge.GT(1))
	require.NoError(t, err)
	assert.Equal(t, "(User.Age > @p0)", frag.SQL)

	frag, err = TranslatePredicate(pgCaps, expr.F[Account, int64]("ID").EQ(1))
	require.NoError(t, err)
	assert.Equal(t, "(tbl_accounts.account_id = @p0)", frag.SQL)

	frag, err = TranslatePredicate(unknownCaps, UserAge.GT(1))
	require.NoError(t, err, "comparisons do not branch on the dialect")
	assert.Equal(t, "(Users.Age > @p0)", frag.SQL)
}
