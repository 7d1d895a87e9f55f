package template

import "strings"

// segment is one separator-delimited span of a template, carrying its byte
// offset within the original input for position reporting.
type segment struct {
	text   string
	offset int
}

// splitSegments splits the input on ';' separators. Separators inside
// single-quoted strings, line comments, and {{ }} expressions do not split.
func splitSegments(input string) []segment {
	var segs []segment
	start := 0
	i := 0
	for i < len(input) {
		switch {
		case input[i] == '\'':
			// skip quoted string; '' is an escaped quote
			i++
			for i < len(input) {
				if input[i] == '\'' {
					if i+1 < len(input) && input[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		case strings.HasPrefix(input[i:], "--"):
			// skip to end of line
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case strings.HasPrefix(input[i:], "{{"):
			// skip placeholder expression
			if end := strings.Index(input[i:], "}}"); end >= 0 {
				i += end + 2
			} else {
				i = len(input)
			}
		case input[i] == ';':
			segs = append(segs, segment{text: input[start:i], offset: start})
			i++
			start = i
		default:
			i++
		}
	}
	if start < len(input) {
		segs = append(segs, segment{text: input[start:], offset: start})
	}
	return segs
}

// executable reports whether a segment contains anything beyond whitespace
// and line comments. Comment-only segments are documentation, not
// statements, and are dropped by the renderer.
func executable(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		return true
	}
	return false
}

// SplitStatements splits raw SQL into trimmed executable statements,
// dropping empty and comment-only segments. Used by adapters for schema
// DDL, which carries no placeholders.
func SplitStatements(input string) []string {
	var stmts []string
	for _, seg := range splitSegments(input) {
		if !executable(seg.text) {
			continue
		}
		if s := strings.TrimSpace(seg.text); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// positionAt computes the 1-based line and column of a byte offset.
func positionAt(input string, offset int) Position {
	if offset > len(input) {
		offset = len(input)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col}
}
