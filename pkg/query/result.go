package query

import (
	"context"
	"fmt"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/mapper"
)

// Result wraps an execution outcome with the call site's declared shape.
type Result struct {
	shape   core.ResultShape
	outcome *core.Outcome
}

// Value returns the shaped value: nil, an affected count, one unflattened
// record, or a list of records, per the call site's ResultShape.
func (r *Result) Value() (any, error) {
	return mapper.Shape(r.outcome, r.shape)
}

// First returns the first row unflattened, or nil if there are no rows.
func (r *Result) First() map[string]any {
	rows := r.outcome.LastRows()
	if len(rows) == 0 {
		return nil
	}
	return mapper.Unflatten(rows[0])
}

// All returns every row unflattened, in backend order.
func (r *Result) All() []map[string]any {
	rows := r.outcome.LastRows()
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapper.Unflatten(row))
	}
	return out
}

// Count returns the number of returned rows.
func (r *Result) Count() int {
	return len(r.outcome.LastRows())
}

// IsEmpty reports whether the result contains no rows.
func (r *Result) IsEmpty() bool {
	return r.Count() == 0
}

// RowsAffected returns the total affected-row count of non-query
// statements.
func (r *Result) RowsAffected() int64 {
	return r.outcome.TotalAffected()
}

// Outcome exposes the raw per-statement results.
func (r *Result) Outcome() *core.Outcome {
	return r.outcome
}

// One invokes the call site and decodes the first row into T. Returns
// (nil, nil) when the query matches no rows, so an absent record is
// distinguishable from a decode failure.
func One[T any](ctx context.Context, r *Runner, call CallSite, params map[string]any) (*T, error) {
	call.Shape = core.ShapeOne
	res, err := r.Invoke(ctx, call, params)
	if err != nil {
		return nil, err
	}
	rows := res.outcome.LastRows()
	if len(rows) == 0 {
		return nil, nil
	}
	rec, err := mapper.DecodeRow[T](rows[0])
	if err != nil {
		return nil, fmt.Errorf("failed to map record: %w", err)
	}
	return &rec, nil
}

// All invokes the call site and decodes every row into T, preserving
// backend row order.
func All[T any](ctx context.Context, r *Runner, call CallSite, params map[string]any) ([]T, error) {
	call.Shape = core.ShapeMany
	res, err := r.Invoke(ctx, call, params)
	if err != nil {
		return nil, err
	}
	out, err := mapper.DecodeRows[T](res.outcome.LastRows())
	if err != nil {
		return nil, fmt.Errorf("failed to map records: %w", err)
	}
	return out, nil
}

// Exec invokes the call site and returns the affected-row count.
func Exec(ctx context.Context, r *Runner, call CallSite, params map[string]any) (int64, error) {
	call.Shape = core.ShapeRowCount
	res, err := r.Invoke(ctx, call, params)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
