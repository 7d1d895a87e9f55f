package mapper

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// DecodeInto decodes an unflattened record into the caller's target value.
// Fields match columns by `db` tag, exact name, or the snake_case form of
// the field name; a column with no matching field is ignored, and a field
// with no matching column keeps its zero value. A nil nested group leaves
// pointer fields nil.
func DecodeInto(record map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "db",
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == fieldName || mapKey == snakeCase(fieldName)
		},
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(record); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// DecodeRow unflattens a flat row and decodes it into T.
func DecodeRow[T any](row core.Row) (T, error) {
	var out T
	if err := DecodeInto(Unflatten(row), &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeRows maps every row to one T, preserving backend row order.
func DecodeRows[T any](rows []core.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		rec, err := DecodeRow[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// snakeCase converts an exported field name to snake_case ("ZipCode" ->
// "zip_code") so conventional column aliases match Go field names.
func snakeCase(name string) string {
	var b []byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b = append(b, '_')
			}
			b = append(b, c+('a'-'A'))
		} else {
			b = append(b, c)
		}
	}
	return string(b)
}
