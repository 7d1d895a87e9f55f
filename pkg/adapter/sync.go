package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	// database/sql drivers selected by target scheme
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// SyncAdapter executes statements over a pooled database/sql connection,
// blocking the calling goroutine for the duration of pool checkout and
// statement execution. Concurrent invocations each hold their own
// checked-out connection, bounded by pool size.
type SyncAdapter struct {
	db      *sql.DB
	target  core.Target
	dialect template.BindDialect
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ EngineAdapter = (*SyncAdapter)(nil)

// NewSyncAdapter opens and pings a database/sql pool for the target. The
// driver and bind dialect are chosen from the target's URL scheme. If
// logger is nil, a discard logger is used.
func NewSyncAdapter(ctx context.Context, target core.Target, logger *slog.Logger) (*SyncAdapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := resolveTarget(target)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening sync adapter",
		slog.String("scheme", info.scheme),
		slog.String("driver", info.driver))

	db, err := sql.Open(info.driver, info.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", info.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", info.driver, err)
	}

	return &SyncAdapter{
		db:      db,
		target:  target,
		dialect: info.dialect,
		logger:  logger,
	}, nil
}

// BindDialect returns the placeholder syntax for this adapter's driver.
func (a *SyncAdapter) BindDialect() template.BindDialect { return a.dialect }

// Target returns the connection target.
func (a *SyncAdapter) Target() core.Target { return a.target }

// Mode returns ModeSync.
func (a *SyncAdapter) Mode() core.ExecutionMode { return core.ModeSync }

// InitSchema executes DDL statements in order within one transaction.
func (a *SyncAdapter) InitSchema(ctx context.Context, ddl string) error {
	if a.closed.Load() {
		return core.ErrClosedAdapter
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.SchemaError{Err: err}
	}
	for _, stmt := range template.SplitStatements(ddl) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return &core.SchemaError{Err: fmt.Errorf("statement %q: %w", stmt, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &core.SchemaError{Err: err}
	}
	return nil
}

// Execute runs the rendered statements in order within one transaction.
func (a *SyncAdapter) Execute(ctx context.Context, stmts []core.RenderedStatement) (*core.Outcome, error) {
	if a.closed.Load() {
		return nil, core.ErrClosedAdapter
	}

	outcome := &core.Outcome{}
	if len(stmts) == 0 {
		return outcome, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, stmt := range stmts {
		result, err := a.executeOne(ctx, tx, stmt)
		if err != nil {
			_ = tx.Rollback()
			return nil, &core.ExecutionError{Index: i, SQL: stmt.SQL, Err: err}
		}
		outcome.Statements = append(outcome.Statements, result)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	a.logger.Debug("statements executed",
		slog.Int("count", len(stmts)),
		slog.Int64("rows_affected", outcome.TotalAffected()))
	return outcome, nil
}

// executeOne runs a single statement inside the transaction.
func (a *SyncAdapter) executeOne(ctx context.Context, tx *sql.Tx, stmt core.RenderedStatement) (core.StatementResult, error) {
	if returnsRows(stmt.SQL) {
		rows, err := tx.QueryContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return core.StatementResult{}, err
		}
		collected, err := collectRows(rows)
		if err != nil {
			return core.StatementResult{}, err
		}
		return core.StatementResult{SQL: stmt.SQL, IsQuery: true, Rows: collected}, nil
	}

	res, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return core.StatementResult{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// some drivers cannot report counts for DDL
		affected = 0
	}
	return core.StatementResult{SQL: stmt.SQL, RowsAffected: affected}, nil
}

// Dispose releases the pool. Idempotent.
func (a *SyncAdapter) Dispose() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.logger.Debug("disposing sync adapter", slog.String("target", redact(a.target)))
	return a.db.Close()
}

// collectRows drains a result set into flat rows keyed by column alias.
func collectRows(rows *sql.Rows) ([]core.Row, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// normalizeValue converts driver byte slices to strings so rows look the
// same regardless of backend.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
