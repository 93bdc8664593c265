package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

func newMock(t *testing.T, name string, opts ...Option) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(name, db, opts...), mock
}

func TestWithVars(t *testing.T) {
	drv, mock := newMock(t, dialect.Postgres)
	drv.DB().SetMaxOpenConns(1)
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	rows, err := drv.Query(WithVar(context.Background(), "foo", "bar"), "SELECT 1", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, rows.Close(), "second close is a no-op")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET foo = 'baz'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	rows, err = drv.Query(WithVar(WithVar(context.Background(), "foo", "bar"), "foo", "baz"), "SELECT 1", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())

	// A transaction is scoped to a single connection, so variables are not reset.
	mock.ExpectBegin()
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	rows, err = tx.Query(WithVar(context.Background(), "foo", "bar"), "SELECT 1", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET foo = 'it''s'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM Users WHERE (Users.ID = $1)").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	query, params, err := NewBuilder[User](drv).Where(UserID.EQ(1)).BuildDelete()
	require.NoError(t, err)
	_, err = drv.Exec(WithVar(context.Background(), "foo", "it's"), query, params)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	ctx := WithIntVar(context.Background(), "n", 3)
	v, ok := VarFromContext(ctx, "n")
	require.True(t, ok)
	assert.Equal(t, "3", v)
	v, _ = VarFromContext(WithVar(ctx, "n", "4"), "n")
	assert.Equal(t, "4", v)
	v, _ = VarFromContext(ctx, "n")
	assert.Equal(t, "3", v)
	_, ok = VarFromContext(ctx, "m")
	assert.False(t, ok)
}

func TestWithVarsInvalidName(t *testing.T) {
	drv, _ := newMock(t, dialect.Postgres)
	drv.DB().SetMaxOpenConns(1)
	_, err := drv.Query(WithVar(context.Background(), "foo; DROP TABLE users; --", "bar"), "SELECT 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestDriverQuery(t *testing.T) {
	drv, mock := newMock(t, dialect.Postgres)
	ctx := context.Background()

	query, params, err := NewBuilder[User](drv).Where(UserAge.GT(18)).OrderBy(UserName).BuildSelect()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT * FROM Users WHERE (Users.Age > $1) ORDER BY Users.Name").
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "Name", "Email", "Age"}).
			AddRow(1, "Alice", nil, 30).
			AddRow(2, "Bob", "bob@x.io", 40))
	users, err := Query[User](ctx, drv, query, params)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, User{ID: 1, Name: "Alice", Age: 30}, users[0])
	require.NotNil(t, users[1].Email)
	assert.Equal(t, "bob@x.io", *users[1].Email)

	mock.ExpectQuery(query).WithArgs(18).WillReturnRows(sqlmock.NewRows([]string{"ID", "Name"}))
	_, ok, err := First[User](ctx, drv, query, params)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(query).WithArgs(18).WillReturnRows(sqlmock.NewRows([]string{"ID", "Name"}).AddRow(5, "Eve"))
	u, ok, err := First[User](ctx, drv, query, params)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Eve", u.Name)

	mock.ExpectQuery(query).WithArgs(18).WillReturnError(errors.New("database error"))
	_, err = Query[User](ctx, drv, query, params)
	require.Error(t, err)

	mock.ExpectQuery(query).WithArgs(18).WillReturnRows(sqlmock.NewRows([]string{"Age"}).AddRow("old"))
	_, err = Query[User](ctx, drv, query, params)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = drv.Query(ctx, "SELECT @p7", params)
	assert.Error(t, err, "unbound placeholder")
}

func TestDriverExec(t *testing.T) {
	drv, mock := newMock(t, dialect.MySQL)
	ctx := context.Background()

	query, params, err := NewBuilder[User](drv).Where(UserID.EQ(1)).BuildUpdate(User{Name: "Alice", Age: 3})
	require.NoError(t, err)
	mock.ExpectExec("UPDATE Users SET Name = ?, Email = ?, Age = ? WHERE (Users.ID = ?)").
		WithArgs("Alice", nil, 3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	res, err := drv.Exec(ctx, query, params)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec("DELETE FROM Users WHERE (Users.ID = ?)").WithArgs(1).WillReturnError(errors.New("constraint violation"))
	query, params, err = NewBuilder[User](drv).Where(UserID.EQ(1)).BuildDelete()
	require.NoError(t, err)
	_, err = drv.Exec(ctx, query, params)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertID(t *testing.T) {
	ctx := context.Background()
	u := User{Name: "ann", Age: 30}

	t.Run("Returning", func(t *testing.T) {
		drv, mock := newMock(t, dialect.Postgres)
		query, params, err := NewBuilder[User](drv).BuildInsert(u, true)
		require.NoError(t, err)
		mock.ExpectQuery("INSERT INTO Users (Name, Email, Age) VALUES ($1, $2, $3) RETURNING ID").
			WithArgs("ann", nil, 30).
			WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(7))
		id, err := InsertID(ctx, drv, query, params)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LastInsertID", func(t *testing.T) {
		drv, mock := newMock(t, dialect.MySQL)
		query, params, err := NewBuilder[User](drv).BuildInsert(u, true)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO Users (Name, Email, Age) VALUES (@p0, @p1, @p2); SELECT LAST_INSERT_ID()", query)
		mock.ExpectExec("INSERT INTO Users (Name, Email, Age) VALUES (?, ?, ?)").
			WithArgs("ann", nil, 30).
			WillReturnResult(sqlmock.NewResult(9, 1))
		stats := NewStatsDriver(drv)
		id, err := InsertID(ctx, stats, query, params)
		require.NoError(t, err)
		assert.Equal(t, int64(9), id)
		require.NoError(t, mock.ExpectationsWereMet())
		snap := stats.QueryStats().Stats()
		assert.Equal(t, int64(1), snap.TotalExecs)
		assert.Zero(t, snap.TotalQueries)
	})

	t.Run("LastInsertIDError", func(t *testing.T) {
		drv, mock := newMock(t, dialect.MySQL)
		query, params, err := NewBuilder[User](drv).BuildInsert(u, true)
		require.NoError(t, err)
		mock.ExpectExec("INSERT INTO Users (Name, Email, Age) VALUES (?, ?, ?)").
			WithArgs("ann", nil, 30).
			WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
		_, err = InsertID(ctx, drv, query, params)
		assert.ErrorContains(t, err, "last insert id: no id")
	})

	t.Run("SessionVars", func(t *testing.T) {
		drv, mock := newMock(t, dialect.Postgres)
		drv.DB().SetMaxOpenConns(1)
		query, params, err := NewBuilder[User](drv).BuildInsert(u, true)
		require.NoError(t, err)
		mock.ExpectExec("SET app.tenant = 't1'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("INSERT INTO Users (Name, Email, Age) VALUES ($1, $2, $3) RETURNING ID").
			WithArgs("ann", nil, 30).
			WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(3))
		mock.ExpectExec("RESET app.tenant").WillReturnResult(sqlmock.NewResult(0, 0))
		id, err := InsertID(WithVar(ctx, "app.tenant", "t1"), drv, query, params)
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoRows", func(t *testing.T) {
		drv, mock := newMock(t, dialect.SQLite)
		mock.ExpectQuery("INSERT INTO Users (Name) VALUES (?) RETURNING ID").
			WithArgs("ann").
			WillReturnRows(sqlmock.NewRows([]string{"ID"}))
		_, err := InsertID(ctx, drv, "INSERT INTO Users (Name) VALUES (@p0) RETURNING ID", []dialect.Param{{Name: "p0", Value: "ann"}})
		assert.ErrorContains(t, err, "no identity")
	})
}

func TestDriverTransaction(t *testing.T) {
	drv, mock := newMock(t, dialect.Postgres)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM Users WHERE (Users.ID = $1)").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		assert.Equal(t, dialect.Postgres, tx.Dialect())
		query, params, err := NewBuilder[User](drv).Where(UserID.EQ(1)).BuildDelete()
		require.NoError(t, err)
		_, err = tx.Exec(ctx, query, params)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT * FROM Users").WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(1))
		mock.ExpectRollback()
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		users, err := Query[User](ctx, tx, "SELECT * FROM Users", nil)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginError", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("busy"))
		_, err := drv.Tx(ctx)
		require.Error(t, err)
	})
}

func TestDriverDialect(t *testing.T) {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.SQLServer} {
		t.Run(name, func(t *testing.T) {
			drv, _ := newMock(t, name)
			assert.Equal(t, name, drv.Dialect())
		})
	}
	drv, _ := newMock(t, "postgres-traced")
	assert.Equal(t, dialect.Postgres, drv.Dialect())

	assert.Equal(t, "postgres", DriverName(dialect.Postgres))
	assert.Equal(t, "sqlite", DriverName(dialect.SQLite))
	assert.Equal(t, "sqlserver", DriverName(dialect.SQLServer))
	assert.Equal(t, "mysql", DriverName(dialect.MySQL))
}

func TestDriverPluralize(t *testing.T) {
	type Person struct{ ID int64 }

	drv, _ := newMock(t, dialect.Postgres)
	assert.True(t, drv.PluralizeTableNames())
	assert.Equal(t, "Persons", NewBuilder[Person](drv).Table())

	drv, _ = newMock(t, dialect.Postgres, WithPluralizer(schema.English))
	assert.Equal(t, "People", NewBuilder[Person](drv).Table())

	drv, _ = newMock(t, dialect.Postgres, WithPluralize(false))
	assert.False(t, drv.PluralizeTableNames())
	assert.Equal(t, "Person", NewBuilder[Person](drv).Table())
}

func TestMakeParameter(t *testing.T) {
	pg, _ := newMock(t, dialect.Postgres)
	lite, _ := newMock(t, dialect.SQLite)

	day := field.Date{Year: 2024, Month: time.February, Day: 29}
	p := pg.MakeParameter("p0", day, field.TypeDate)
	assert.Equal(t, day.Time(), p.Value)
	assert.Equal(t, "@p0", p.Placeholder())

	id := uuid.New()
	assert.Equal(t, id.String(), pg.MakeParameter("p0", id, field.TypeUUID).Value)

	d := apd.New(1250, -2)
	assert.Equal(t, "12.50", pg.MakeParameter("p0", d, field.TypeDecimal).Value)
	assert.Equal(t, "12.50", pg.MakeParameter("p0", *d, field.TypeDecimal).Value)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, at, pg.MakeParameter("p0", at, field.TypeTime).Value)
	assert.Equal(t, time.UTC, lite.MakeParameter("p0", at, field.TypeTime).Value.(time.Time).Location())

	assert.Equal(t, 3, pg.MakeParameter("p0", 3, field.TypeInt).Value)
}

func TestQueryDateRoundTrip(t *testing.T) {
	type Event struct {
		ID  int64
		Day field.Date
	}
	EventDay := expr.F[Event, field.Date]("Day")
	day := field.Date{Year: 2021, Month: time.March, Day: 9}

	drv, mock := newMock(t, dialect.Postgres)
	query, params, err := NewBuilder[Event](drv).Where(EventDay.EQ(day)).BuildSelect()
	require.NoError(t, err)
	assert.Equal(t, field.TypeDate, params[0].Type)
	mock.ExpectQuery("SELECT * FROM Events WHERE (Events.Day = $1)").
		WithArgs(day.Time()).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "Day"}).AddRow(1, day.Time()))
	events, err := Query[Event](context.Background(), drv, query, params)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, day, events[0].Day)
}

func TestQuoteVarValue(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"hello", "'hello'"},
		{"it's", "'it''s'"},
		{`path\to\file`, `'path\\to\\file'`},
		{`it's a \test`, `'it''s a \\test'`},
		{"", "''"},
		{"'; DROP TABLE users; --", "'''; DROP TABLE users; --'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteVarValue(tt.input))
	}
}
