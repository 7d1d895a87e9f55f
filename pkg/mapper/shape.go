package mapper

import (
	"fmt"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// Shape applies a ResultShape to an execution outcome, producing the
// caller-facing value as unflattened records:
//
//	ShapeNone     -> nil
//	ShapeRowCount -> int64 (total affected rows)
//	ShapeOne      -> map[string]any or nil when no rows
//	ShapeMany     -> []map[string]any in backend order
func Shape(outcome *core.Outcome, shape core.ResultShape) (any, error) {
	switch shape {
	case core.ShapeNone:
		return nil, nil
	case core.ShapeRowCount:
		return outcome.TotalAffected(), nil
	case core.ShapeOne:
		rows := outcome.LastRows()
		if len(rows) == 0 {
			return nil, nil
		}
		return Unflatten(rows[0]), nil
	case core.ShapeMany:
		rows := outcome.LastRows()
		records := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			records = append(records, Unflatten(row))
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unknown result shape: %v", shape)
	}
}
