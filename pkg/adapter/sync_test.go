package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

func newMockAdapter(t *testing.T) (*SyncAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &SyncAdapter{
		db:      db,
		target:  "sqlite://:memory:",
		dialect: template.BindQuestion,
		logger:  slog.New(slog.DiscardHandler),
	}, mock
}

func TestSyncAdapter_Execute_Query(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM users").
		WithArgs("Ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile__bio"}).
			AddRow(1, "x").
			AddRow(2, nil))
	mock.ExpectCommit()

	outcome, err := a.Execute(context.Background(), []core.RenderedStatement{
		{SQL: "SELECT * FROM users WHERE name = ?", Args: []any{"Ada"}},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Statements, 1)
	assert.True(t, outcome.Statements[0].IsQuery)

	rows := outcome.LastRows()
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "x", rows[0]["profile__bio"])
	assert.Nil(t, rows[1]["profile__bio"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncAdapter_Execute_RowCount(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	outcome, err := a.Execute(context.Background(), []core.RenderedStatement{
		{SQL: "INSERT INTO users (name) VALUES (?)", Args: []any{"Ada"}},
	})
	require.NoError(t, err)
	assert.False(t, outcome.ReturnsRows())
	assert.Equal(t, int64(1), outcome.TotalAffected())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncAdapter_Execute_MultiStatement(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM audit").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	outcome, err := a.Execute(context.Background(), []core.RenderedStatement{
		{SQL: "INSERT INTO audit (action) VALUES (?)", Args: []any{"create"}},
		{SQL: "SELECT * FROM audit"},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Statements, 2)
	assert.Equal(t, int64(1), outcome.TotalAffected())
	assert.Len(t, outcome.LastRows(), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncAdapter_Execute_RollbackOnFailure(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO orders").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := a.Execute(context.Background(), []core.RenderedStatement{
		{SQL: "INSERT INTO users (name) VALUES (?)", Args: []any{"Ada"}},
		{SQL: "INSERT INTO orders (user_id) VALUES (?)", Args: []any{1}},
	})
	require.Error(t, err)

	var execErr *core.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Index)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncAdapter_Execute_Empty(t *testing.T) {
	a, _ := newMockAdapter(t)
	outcome, err := a.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Statements)
}

func TestSyncAdapter_InitSchema(t *testing.T) {
	t.Run("multi-statement ddl in one transaction", func(t *testing.T) {
		a, mock := newMockAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := a.InitSchema(context.Background(),
			"CREATE TABLE IF NOT EXISTS users (id INT);\nCREATE TABLE IF NOT EXISTS orders (id INT);")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ddl failure surfaces SchemaError", func(t *testing.T) {
		a, mock := newMockAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE broken").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := a.InitSchema(context.Background(), "CREATE TABLE broken (")
		require.Error(t, err)

		var schemaErr *core.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestSyncAdapter_Dispose(t *testing.T) {
	a, mock := newMockAdapter(t)
	mock.ExpectClose()

	require.NoError(t, a.Dispose())

	// disposing twice is a no-op
	require.NoError(t, a.Dispose())

	// any use after dispose fails with the sentinel
	_, err := a.Execute(context.Background(), []core.RenderedStatement{{SQL: "SELECT 1"}})
	assert.True(t, errors.Is(err, core.ErrClosedAdapter))

	err = a.InitSchema(context.Background(), "CREATE TABLE t (id INT)")
	assert.True(t, errors.Is(err, core.ErrClosedAdapter))
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM users", true},
		{"select 1", true},
		{"  WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"VALUES (1)", true},
		{"-- comment line\nSELECT 1", true},
		{"INSERT INTO users (name) VALUES (?)", false},
		{"UPDATE users SET name = ?", false},
		{"DELETE FROM users", false},
		{"CREATE TABLE t (id INT)", false},
		{"INSERT INTO users (name) VALUES (?) RETURNING id", true},
		{"UPDATE users SET name = ? RETURNING *", true},
		{"INSERT INTO logs (line) VALUES ('no RETURNING here')", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, returnsRows(tt.sql))
		})
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name        string
		target      core.Target
		wantDriver  string
		wantDSN     string
		wantDialect template.BindDialect
		wantErr     bool
	}{
		{
			name:        "postgres url passes through",
			target:      "postgres://u:p@localhost:5432/app",
			wantDriver:  "pgx",
			wantDSN:     "postgres://u:p@localhost:5432/app",
			wantDialect: template.BindDollar,
		},
		{
			name:        "postgresql alias",
			target:      "postgresql://localhost/app",
			wantDriver:  "pgx",
			wantDSN:     "postgresql://localhost/app",
			wantDialect: template.BindDollar,
		},
		{
			name:        "sqlite relative path",
			target:      "sqlite:///app.db",
			wantDriver:  "sqlite",
			wantDSN:     "app.db",
			wantDialect: template.BindQuestion,
		},
		{
			name:        "sqlite absolute path",
			target:      "sqlite:////var/db/app.db",
			wantDriver:  "sqlite",
			wantDSN:     "/var/db/app.db",
			wantDialect: template.BindQuestion,
		},
		{
			name:        "sqlite in-memory",
			target:      "sqlite://:memory:",
			wantDriver:  "sqlite",
			wantDSN:     ":memory:",
			wantDialect: template.BindQuestion,
		},
		{
			name:        "mysql url converts to driver format",
			target:      "mysql://u:p@localhost:3306/app",
			wantDriver:  "mysql",
			wantDSN:     "u:p@tcp(localhost:3306)/app?parseTime=true",
			wantDialect: template.BindQuestion,
		},
		{
			name:    "missing scheme",
			target:  "just-a-path",
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			target:  "mongodb://localhost/app",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := resolveTarget(tt.target)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, info.driver)
			assert.Equal(t, tt.wantDSN, info.dsn)
			assert.Equal(t, tt.wantDialect, info.dialect)
		})
	}
}
