package query

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishipradeep-think41/foundation-sql/pkg/adapter"
	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// stubAdapter returns canned rows and records what it executed.
type stubAdapter struct {
	mode    core.ExecutionMode
	dialect template.BindDialect
	rows    []core.Row

	mu       sync.Mutex
	executed []core.RenderedStatement
	ddl      []string
}

func (s *stubAdapter) InitSchema(_ context.Context, ddl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ddl = append(s.ddl, ddl)
	return nil
}

func (s *stubAdapter) Execute(_ context.Context, stmts []core.RenderedStatement) (*core.Outcome, error) {
	s.mu.Lock()
	s.executed = append(s.executed, stmts...)
	s.mu.Unlock()

	outcome := &core.Outcome{}
	for _, stmt := range stmts {
		outcome.Statements = append(outcome.Statements, core.StatementResult{
			SQL:     stmt.SQL,
			IsQuery: true,
			Rows:    s.rows,
		})
	}
	return outcome, nil
}

func (s *stubAdapter) BindDialect() template.BindDialect { return s.dialect }
func (s *stubAdapter) Target() core.Target               { return "stub://db" }
func (s *stubAdapter) Mode() core.ExecutionMode          { return s.mode }
func (s *stubAdapter) Dispose() error                    { return nil }

// stubEnv wires a Runner to stub adapters and tracks which modes were
// acquired.
type stubEnv struct {
	runner   *Runner
	adapters map[core.ExecutionMode]*stubAdapter
}

func newStubEnv(rows []core.Row) *stubEnv {
	env := &stubEnv{adapters: map[core.ExecutionMode]*stubAdapter{}}
	reg := adapter.NewRegistry(adapter.WithFactory(
		func(_ context.Context, _ core.Target, mode core.ExecutionMode, _ *slog.Logger) (adapter.EngineAdapter, error) {
			dialect := template.BindQuestion
			if mode == core.ModeAsync {
				dialect = template.BindDollar
			}
			a := &stubAdapter{mode: mode, dialect: dialect, rows: rows}
			env.adapters[mode] = a
			return a, nil
		}))
	env.runner = NewRunner(WithRegistry(reg))
	return env
}

var userRows = []core.Row{
	{"id": int64(1), "name": "Ada", "profile__bio": "pioneer"},
	{"id": int64(2), "name": "Grace", "profile__bio": nil},
}

func TestRunner_ModeResolution(t *testing.T) {
	tests := []struct {
		name     string
		mode     core.ExecutionMode
		invoke   string // "sync" or "async" entry point
		wantMode core.ExecutionMode
	}{
		{"default via Invoke is sync", core.ModeDefault, "sync", core.ModeSync},
		{"default via InvokeAsync is async", core.ModeDefault, "async", core.ModeAsync},
		{"explicit sync via Invoke", core.ModeSync, "sync", core.ModeSync},
		{"explicit async via Invoke wins over convention", core.ModeAsync, "sync", core.ModeAsync},
		{"explicit sync via InvokeAsync wins over convention", core.ModeSync, "async", core.ModeSync},
		{"explicit async via InvokeAsync", core.ModeAsync, "async", core.ModeAsync},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newStubEnv(userRows)
			call := CallSite{
				Target:   "stub://db",
				Mode:     tt.mode,
				Template: "SELECT * FROM users",
				Shape:    core.ShapeMany,
			}

			if tt.invoke == "sync" {
				_, err := env.runner.Invoke(context.Background(), call, nil)
				require.NoError(t, err)
			} else {
				res := <-env.runner.InvokeAsync(context.Background(), call, nil)
				require.NoError(t, res.Err)
			}

			used, ok := env.adapters[tt.wantMode]
			require.True(t, ok, "expected %s adapter to be constructed", tt.wantMode)
			assert.NotEmpty(t, used.executed)

			other := core.ModeSync
			if tt.wantMode == core.ModeSync {
				other = core.ModeAsync
			}
			_, constructed := env.adapters[other]
			assert.False(t, constructed, "only the resolved mode's adapter may be constructed")
		})
	}
}

func TestRunner_SyncAsyncParity(t *testing.T) {
	env := newStubEnv(userRows)
	call := CallSite{
		Target:   "stub://db",
		Template: "SELECT * FROM users",
		Shape:    core.ShapeMany,
	}

	syncRes, err := env.runner.Invoke(context.Background(), call, nil)
	require.NoError(t, err)

	asyncRes := <-env.runner.InvokeAsync(context.Background(), call, nil)
	require.NoError(t, asyncRes.Err)

	// identical row data maps to bit-identical shaped results
	syncVal, err := syncRes.Value()
	require.NoError(t, err)
	asyncVal, err := asyncRes.Result.Value()
	require.NoError(t, err)
	assert.Equal(t, syncVal, asyncVal)
}

func TestRunner_RendersWithAdapterDialect(t *testing.T) {
	env := newStubEnv(nil)
	call := CallSite{
		Target:   "stub://db",
		Template: "SELECT * FROM users WHERE id = {{ id }}",
	}
	params := map[string]any{"id": 7}

	_, err := env.runner.Invoke(context.Background(), call, params)
	require.NoError(t, err)
	res := <-env.runner.InvokeAsync(context.Background(), call, params)
	require.NoError(t, res.Err)

	assert.Equal(t, "SELECT * FROM users WHERE id = ?", env.adapters[core.ModeSync].executed[0].SQL)
	assert.Equal(t, "SELECT * FROM users WHERE id = $1", env.adapters[core.ModeAsync].executed[0].SQL)
	assert.Equal(t, []any{7}, env.adapters[core.ModeSync].executed[0].Args)
	assert.Equal(t, []any{7}, env.adapters[core.ModeAsync].executed[0].Args)
}

func TestRunner_RenderErrorSurfaced(t *testing.T) {
	env := newStubEnv(nil)
	call := CallSite{
		Target:   "stub://db",
		Template: "SELECT * FROM users WHERE zip = {{ user.zip_code }}",
	}

	_, err := env.runner.Invoke(context.Background(), call, map[string]any{"user": map[string]any{}})
	require.Error(t, err)

	var unresolved *template.UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "user.zip_code", unresolved.Path)

	// nothing reached the adapter
	assert.Empty(t, env.adapters[core.ModeSync].executed)
}

func TestResult_Envelope(t *testing.T) {
	env := newStubEnv(userRows)
	call := CallSite{Target: "stub://db", Template: "SELECT * FROM users", Shape: core.ShapeMany}

	res, err := env.runner.Invoke(context.Background(), call, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count())
	assert.False(t, res.IsEmpty())

	first := res.First()
	assert.Equal(t, "Ada", first["name"])
	assert.Equal(t, map[string]any{"bio": "pioneer"}, first["profile"])

	all := res.All()
	require.Len(t, all, 2)
	assert.Nil(t, all[1]["profile"], "all-null nested group is absent")
}

type testProfile struct {
	Bio string
}

type testUser struct {
	ID      int64
	Name    string
	Profile *testProfile
}

func TestGenericHelpers(t *testing.T) {
	t.Run("One decodes first row", func(t *testing.T) {
		env := newStubEnv(userRows)
		got, err := One[testUser](context.Background(), env.runner,
			CallSite{Target: "stub://db", Template: "SELECT * FROM users"}, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Ada", got.Name)
		require.NotNil(t, got.Profile)
		assert.Equal(t, "pioneer", got.Profile.Bio)
	})

	t.Run("One with no rows returns nil", func(t *testing.T) {
		env := newStubEnv(nil)
		got, err := One[testUser](context.Background(), env.runner,
			CallSite{Target: "stub://db", Template: "SELECT * FROM users"}, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("All decodes every row in order", func(t *testing.T) {
		env := newStubEnv(userRows)
		got, err := All[testUser](context.Background(), env.runner,
			CallSite{Target: "stub://db", Template: "SELECT * FROM users"}, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Ada", got[0].Name)
		assert.Equal(t, "Grace", got[1].Name)
		assert.Nil(t, got[1].Profile)
	})
}

func TestRunner_InitSchema(t *testing.T) {
	env := newStubEnv(nil)
	ddl := "CREATE TABLE IF NOT EXISTS users (id INT)"

	err := env.runner.InitSchema(context.Background(), "stub://db", core.ModeDefault, ddl)
	require.NoError(t, err)
	assert.Equal(t, []string{ddl}, env.adapters[core.ModeSync].ddl)
}

func TestRunner_ReleaseAll(t *testing.T) {
	env := newStubEnv(userRows)
	call := CallSite{Target: "stub://db", Template: "SELECT 1"}
	_, err := env.runner.Invoke(context.Background(), call, nil)
	require.NoError(t, err)

	require.NoError(t, env.runner.ReleaseAll())
}
