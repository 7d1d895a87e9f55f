// Package query is the dispatch facade: it resolves the execution mode for
// a call site, acquires the right adapter from the registry, renders the
// template with the adapter's bind dialect, executes, and shapes the
// outcome. Both modes produce identical shaped results for identical row
// data; the only observable difference is whether the caller blocks or
// receives the result on a channel.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rishipradeep-think41/foundation-sql/pkg/adapter"
	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// CallSite describes one registered query: where it runs, how it runs,
// what template it renders, and what shape the caller expects back.
type CallSite struct {
	// Target is the connection URL the query runs against.
	Target core.Target

	// Mode is the explicit execution flag. ModeDefault follows the
	// invocation convention (Invoke -> sync, InvokeAsync -> async); an
	// explicit ModeSync or ModeAsync is authoritative and overrides the
	// convention in both directions.
	Mode core.ExecutionMode

	// Template is the SQL template text. How it was produced (hand-written,
	// cached, generated) is not this layer's concern.
	Template string

	// Shape declares the expected result conversion.
	Shape core.ResultShape

	// Name identifies the template's source for logging. Empty gets a
	// generated identity per invocation.
	Name string
}

// Runner dispatches call sites against the adapter registry.
type Runner struct {
	registry *adapter.Registry
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry uses a dedicated registry instead of the process-wide one.
func WithRegistry(r *adapter.Registry) Option {
	return func(run *Runner) {
		if r != nil {
			run.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(run *Runner) {
		if logger != nil {
			run.logger = logger
		}
	}
}

// NewRunner creates a Runner backed by the process-wide adapter registry
// unless overridden.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		registry: adapter.Default(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs the call site, blocking until the result is available.
// A ModeDefault call site resolves to sync execution here.
func (r *Runner) Invoke(ctx context.Context, call CallSite, params map[string]any) (*Result, error) {
	mode := call.Mode
	if mode == core.ModeDefault {
		mode = core.ModeSync
	}
	return r.run(ctx, call, params, mode)
}

// AsyncResult carries the outcome of an asynchronous invocation.
type AsyncResult struct {
	Result *Result
	Err    error
}

// InvokeAsync runs the call site without blocking the caller; the result
// arrives on the returned channel, which is closed after one send. A
// ModeDefault call site resolves to async execution here; an explicit
// ModeSync still runs on the blocking adapter, only the delivery is
// asynchronous.
func (r *Runner) InvokeAsync(ctx context.Context, call CallSite, params map[string]any) <-chan AsyncResult {
	mode := call.Mode
	if mode == core.ModeDefault {
		mode = core.ModeAsync
	}

	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		res, err := r.run(ctx, call, params, mode)
		ch <- AsyncResult{Result: res, Err: err}
	}()
	return ch
}

// run is the single execution path both modes share.
func (r *Runner) run(ctx context.Context, call CallSite, params map[string]any, mode core.ExecutionMode) (*Result, error) {
	name := call.Name
	if name == "" {
		name = uuid.NewString()
	}

	ad, err := r.registry.Acquire(ctx, call.Target, mode)
	if err != nil {
		return nil, err
	}

	renderer := template.New(ad.BindDialect(), template.WithLogger(r.logger))
	stmts, err := renderer.Render(call.Template, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outcome, err := ad.Execute(ctx, stmts)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("query executed",
		slog.String("query", name),
		slog.String("mode", mode.String()),
		slog.Int("statements", len(stmts)),
		slog.Duration("elapsed", time.Since(start)))

	return &Result{shape: call.Shape, outcome: outcome}, nil
}

// InitSchema applies DDL to the target using the resolved mode's adapter.
// Callers supply dialect-correct DDL text; idempotency is theirs to
// guarantee (IF NOT EXISTS guards).
func (r *Runner) InitSchema(ctx context.Context, target core.Target, mode core.ExecutionMode, ddl string) error {
	if mode == core.ModeDefault {
		mode = core.ModeSync
	}
	ad, err := r.registry.Acquire(ctx, target, mode)
	if err != nil {
		return err
	}
	return ad.InitSchema(ctx, ddl)
}

// ReleaseAll disposes every adapter in the runner's registry. Orderly
// shutdown only; never part of normal query execution.
func (r *Runner) ReleaseAll() error {
	return r.registry.ReleaseAll()
}
