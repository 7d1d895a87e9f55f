package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// AsyncAdapter executes statements over a native non-blocking pgx pool.
// It never blocks an OS thread: concurrent invocations are multiplexed as
// goroutines suspended on pool checkout, statement send, and result
// receipt, all of which honor context cancellation. Binding is pgx's $N
// ordinal style.
//
// Mid-statement cancellation is not guaranteed to roll back cleanly; a
// cancelled context is only observed between suspension points. This is a
// known limitation of the underlying driver contract.
type AsyncAdapter struct {
	pool   *pgxpool.Pool
	target core.Target
	logger *slog.Logger
	closed atomic.Bool
}

var _ EngineAdapter = (*AsyncAdapter)(nil)

// NewAsyncAdapter creates a pgx pool for the target and pings it. Only
// postgres targets support async execution. If logger is nil, a discard
// logger is used.
func NewAsyncAdapter(ctx context.Context, target core.Target, logger *slog.Logger) (*AsyncAdapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	scheme, _, _ := strings.Cut(string(target), "://")
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("async execution requires a postgres target, got scheme %q", scheme)
	}

	cfg, err := pgxpool.ParseConfig(string(target))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Debug("async adapter opened", slog.String("target", redact(target)))
	return &AsyncAdapter{pool: pool, target: target, logger: logger}, nil
}

// BindDialect returns pgx's ordinal placeholder syntax.
func (a *AsyncAdapter) BindDialect() template.BindDialect { return template.BindDollar }

// Target returns the connection target.
func (a *AsyncAdapter) Target() core.Target { return a.target }

// Mode returns ModeAsync.
func (a *AsyncAdapter) Mode() core.ExecutionMode { return core.ModeAsync }

// InitSchema executes DDL statements in order within one transaction.
func (a *AsyncAdapter) InitSchema(ctx context.Context, ddl string) error {
	if a.closed.Load() {
		return core.ErrClosedAdapter
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return &core.SchemaError{Err: err}
	}
	for _, stmt := range template.SplitStatements(ddl) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return &core.SchemaError{Err: fmt.Errorf("statement %q: %w", stmt, err)}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &core.SchemaError{Err: err}
	}
	return nil
}

// Execute runs the rendered statements in order within one transaction.
func (a *AsyncAdapter) Execute(ctx context.Context, stmts []core.RenderedStatement) (*core.Outcome, error) {
	if a.closed.Load() {
		return nil, core.ErrClosedAdapter
	}

	outcome := &core.Outcome{}
	if len(stmts) == 0 {
		return outcome, nil
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, stmt := range stmts {
		result, err := a.executeOne(ctx, tx, stmt)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, &core.ExecutionError{Index: i, SQL: stmt.SQL, Err: err}
		}
		outcome.Statements = append(outcome.Statements, result)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	a.logger.Debug("statements executed",
		slog.Int("count", len(stmts)),
		slog.Int64("rows_affected", outcome.TotalAffected()))
	return outcome, nil
}

// executeOne runs a single statement inside the transaction.
func (a *AsyncAdapter) executeOne(ctx context.Context, tx pgx.Tx, stmt core.RenderedStatement) (core.StatementResult, error) {
	if returnsRows(stmt.SQL) {
		rows, err := tx.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return core.StatementResult{}, err
		}
		collected, err := collectPgxRows(rows)
		if err != nil {
			return core.StatementResult{}, err
		}
		return core.StatementResult{SQL: stmt.SQL, IsQuery: true, Rows: collected}, nil
	}

	tag, err := tx.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return core.StatementResult{}, err
	}
	return core.StatementResult{SQL: stmt.SQL, RowsAffected: tag.RowsAffected()}, nil
}

// Dispose closes the pool. Idempotent.
func (a *AsyncAdapter) Dispose() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.logger.Debug("disposing async adapter", slog.String("target", redact(a.target)))
	a.pool.Close()
	return nil
}

// collectPgxRows drains a pgx result set into flat rows.
func collectPgxRows(rows pgx.Rows) ([]core.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(core.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
