package template

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// expression is a parsed {{ ... }} placeholder: a dotted path plus an
// optional default value declared via the default(...) filter.
type expression struct {
	Path       string
	HasDefault bool
	Default    any
}

// parseExpression parses the inner text of a placeholder. Supported forms:
//
//	user.email
//	user.zip_code | default(None)
//	limit | default(100)
//
// The tojson filter is accepted and ignored so templates written for JSON
// interpolation still bind cleanly.
func parseExpression(text string, pos Position) (*expression, error) {
	parts := strings.Split(text, "|")
	path := strings.TrimSpace(parts[0])
	if path == "" {
		return nil, NewRenderErrorf(pos, "empty placeholder expression")
	}
	if !validPath(path) {
		return nil, NewRenderErrorf(pos, "invalid placeholder path %q", path)
	}

	expr := &expression{Path: path}
	for _, raw := range parts[1:] {
		filter := strings.TrimSpace(raw)
		switch {
		case filter == "tojson":
			// values are bound, never interpolated; nothing to do
		case strings.HasPrefix(filter, "default(") && strings.HasSuffix(filter, ")"):
			lit := strings.TrimSpace(filter[len("default(") : len(filter)-1])
			val, err := parseLiteral(lit)
			if err != nil {
				return nil, NewRenderErrorf(pos, "bad default for %q: %v", path, err)
			}
			expr.HasDefault = true
			expr.Default = val
		default:
			return nil, NewRenderErrorf(pos, "unsupported filter %q", filter)
		}
	}
	return expr, nil
}

// validPath checks that a path is dot-separated identifiers.
func validPath(path string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			if unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r)) {
				continue
			}
			return false
		}
	}
	return true
}

// parseLiteral parses a default-value literal: None/null, booleans,
// integers, floats, and quoted strings.
func parseLiteral(lit string) (any, error) {
	switch lit {
	case "None", "none", "null", "NULL":
		return nil, nil
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	}
	if len(lit) >= 2 {
		if (lit[0] == '\'' && lit[len(lit)-1] == '\'') || (lit[0] == '"' && lit[len(lit)-1] == '"') {
			return lit[1 : len(lit)-1], nil
		}
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unparsable literal %q", lit)
}

// resolvePath traverses the context by successive key/field lookup.
// Supported nodes: maps with string keys, structs, and pointers to either.
// Returns (nil, false) when any segment is absent or a traversal touches
// a nil intermediate.
func resolvePath(ctx any, path string) (any, bool) {
	current := ctx
	for _, seg := range strings.Split(path, ".") {
		val, ok := lookup(current, seg)
		if !ok {
			return nil, false
		}
		current = val
	}
	return current, true
}

// lookup resolves one path segment against a single value.
func lookup(v any, key string) (any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if f.Name == key || toSnake(f.Name) == key {
				return rv.Field(i).Interface(), true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// toSnake converts an exported Go field name to snake_case so template
// paths written in column style ("zip_code") match struct fields (ZipCode).
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
