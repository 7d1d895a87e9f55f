// Package mapper converts flat result rows into nested records. Column
// aliases encode nesting with a "__" separator ("profile__bio" is the bio
// field of the nested profile object); the mapper rebuilds the tree and
// decodes it into caller-declared struct types. The shape is fully
// specified by the target type plus the alias convention, never inferred
// from table metadata.
package mapper

import (
	"strings"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// NestedSeparator delimits nesting levels in column aliases.
const NestedSeparator = "__"

// Unflatten converts a flat row into a nested map by grouping aliases on
// shared separator prefixes. A nested group whose values are all NULL
// collapses to nil: outer joins legitimately produce all-null nested
// objects, and those map to an absent object rather than an object of
// nulls.
func Unflatten(row core.Row) map[string]any {
	return unflatten(map[string]any(row))
}

func unflatten(flat map[string]any) map[string]any {
	direct := map[string]any{}
	grouped := map[string]map[string]any{}

	for key, value := range flat {
		prefix, rest, found := strings.Cut(key, NestedSeparator)
		if !found {
			direct[key] = value
			continue
		}
		if grouped[prefix] == nil {
			grouped[prefix] = map[string]any{}
		}
		grouped[prefix][rest] = value
	}

	result := direct
	for prefix, nested := range grouped {
		node := unflatten(nested)
		if allNil(node) {
			result[prefix] = nil
		} else {
			result[prefix] = node
		}
	}
	return result
}

// allNil reports whether every value in the map is nil.
func allNil(m map[string]any) bool {
	for _, v := range m {
		if v != nil {
			return false
		}
	}
	return len(m) > 0
}
