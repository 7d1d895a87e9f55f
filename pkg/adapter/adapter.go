// Package adapter hides backend-specific connection and execution
// mechanics behind one contract. Two variants exist: SyncAdapter blocks
// the calling goroutine over a database/sql pool, AsyncAdapter multiplexes
// over a native non-blocking pgx pool. Both run a rendered template's
// statements in declaration order inside a single transaction and report
// row sets or affected counts per statement.
package adapter

import (
	"context"
	"strings"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// EngineAdapter is the capability set every backend variant implements,
// regardless of execution mode.
type EngineAdapter interface {
	// InitSchema executes one-time DDL. Idempotency is the caller's
	// responsibility (IF NOT EXISTS guards). Fails with *core.SchemaError.
	InitSchema(ctx context.Context, ddl string) error

	// Execute runs statements in order within a single transaction. On any
	// statement failure, prior statements in the same call are rolled back
	// and the call fails with *core.ExecutionError carrying the failing
	// statement index. This layer never retries.
	Execute(ctx context.Context, stmts []core.RenderedStatement) (*core.Outcome, error)

	// BindDialect reports the placeholder syntax the renderer must emit
	// for this adapter.
	BindDialect() template.BindDialect

	// Target returns the connection target this adapter is bound to.
	Target() core.Target

	// Mode returns the execution mode fixed at construction.
	Mode() core.ExecutionMode

	// Dispose releases pooled resources. Idempotent; subsequent calls to
	// any other method fail with core.ErrClosedAdapter.
	Dispose() error
}

// returnsRows decides, from statement shape alone, whether a statement
// produces a row set. No side channels: SELECT/WITH/VALUES statements and
// writes with a RETURNING clause are queries, everything else reports an
// affected-row count.
func returnsRows(sqlText string) bool {
	switch firstKeyword(sqlText) {
	case "SELECT", "WITH", "VALUES", "SHOW":
		return true
	}
	return hasReturningClause(sqlText)
}

// firstKeyword returns the first SQL keyword, skipping whitespace and line
// comments, uppercased.
func firstKeyword(sqlText string) string {
	for _, line := range strings.Split(sqlText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		end := strings.IndexFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '(' || r == ';'
		})
		if end < 0 {
			end = len(line)
		}
		return strings.ToUpper(line[:end])
	}
	return ""
}

// hasReturningClause reports whether the statement carries a standalone
// RETURNING keyword outside of quoted strings.
func hasReturningClause(sqlText string) bool {
	upper := strings.ToUpper(stripQuoted(sqlText))
	for idx := strings.Index(upper, "RETURNING"); idx >= 0; {
		boundedLeft := idx == 0 || upper[idx-1] == ' ' || upper[idx-1] == '\t' || upper[idx-1] == '\n' || upper[idx-1] == ')'
		after := idx + len("RETURNING")
		boundedRight := after == len(upper) || upper[after] == ' ' || upper[after] == '\t' || upper[after] == '\n' || upper[after] == '*'
		if boundedLeft && boundedRight {
			return true
		}
		next := strings.Index(upper[idx+1:], "RETURNING")
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

// stripQuoted blanks out single-quoted string contents so keyword scans
// ignore literals.
func stripQuoted(sqlText string) string {
	b := []byte(sqlText)
	inQuote := false
	for i := range b {
		if b[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			b[i] = ' '
		}
	}
	return string(b)
}
