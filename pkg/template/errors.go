package template

import "fmt"

// Position tracks source location within a template for error reporting.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// UnresolvedPlaceholderError reports a placeholder path that could not be
// resolved against the execution context and declared no default value.
// It is always surfaced, never retried.
type UnresolvedPlaceholderError struct {
	Path string
	Pos  Position
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("%s: unresolved placeholder %q", e.Pos, e.Path)
}

// RenderError reports a malformed template: an unclosed delimiter, an
// unparsable expression, or an unsupported filter.
type RenderError struct {
	Pos   Position
	Msg   string
	Cause error
}

// NewRenderErrorf creates a RenderError with a formatted message.
func NewRenderErrorf(pos Position, format string, args ...any) *RenderError {
	return &RenderError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Pos, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
