// Package template renders Jinja-style SQL templates into dialect-correct
// statements with bound parameters. A template holds one or more
// ';'-separated statements whose {{ dotted.path }} placeholders resolve
// against a caller-supplied context; resolved values are always emitted as
// bound parameters, never interpolated into the SQL text.
package template

import (
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// Renderer renders templates for one bind dialect. Renderers are cheap and
// stateless; each adapter constructs one matching its driver.
type Renderer struct {
	dialect BindDialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNow overrides the clock used for the implicit "now" context value.
func WithNow(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Renderer for the given bind dialect.
func New(dialect BindDialect, opts ...Option) *Renderer {
	r := &Renderer{
		dialect: dialect,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dialect returns the bind dialect this renderer emits.
func (r *Renderer) Dialect() BindDialect {
	return r.dialect
}

// Render expands the template against the context into one rendered
// statement per executable segment. Empty and comment-only segments are
// dropped; a comment header preceding the first statement stays attached
// to it verbatim. Parameter ordinals restart at 1 for each statement.
//
// A "now" value is injected when the context lacks one, so templates can
// reference the invocation timestamp without the caller supplying it.
func (r *Renderer) Render(tmpl string, ctx map[string]any) ([]core.RenderedStatement, error) {
	if ctx == nil {
		ctx = map[string]any{}
	}
	if _, ok := ctx["now"]; !ok {
		withNow := make(map[string]any, len(ctx)+1)
		for k, v := range ctx {
			withNow[k] = v
		}
		withNow["now"] = r.now().UTC()
		ctx = withNow
	}

	var stmts []core.RenderedStatement
	for _, seg := range splitSegments(tmpl) {
		if !executable(seg.text) {
			continue
		}
		stmt, err := r.renderSegment(tmpl, seg, ctx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	r.logger.Debug("template rendered",
		slog.Int("statements", len(stmts)),
		slog.String("dialect", r.dialect.String()))
	return stmts, nil
}

// renderSegment renders one statement segment, replacing each placeholder
// with a dialect placeholder and collecting bound arguments in order.
func (r *Renderer) renderSegment(full string, seg segment, ctx map[string]any) (core.RenderedStatement, error) {
	var (
		out   strings.Builder
		args  []any
		names = map[string]struct{}{}
	)

	text := seg.text
	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "{{")
		if open < 0 {
			out.WriteString(text[i:])
			break
		}
		out.WriteString(text[i : i+open])
		exprStart := i + open
		pos := positionAt(full, seg.offset+exprStart)

		end := strings.Index(text[exprStart:], "}}")
		if end < 0 {
			return core.RenderedStatement{}, NewRenderErrorf(pos, "unclosed placeholder: missing '}}'")
		}
		inner := text[exprStart+2 : exprStart+end]
		i = exprStart + end + 2

		expr, err := parseExpression(inner, pos)
		if err != nil {
			return core.RenderedStatement{}, err
		}

		val, ok := resolvePath(ctx, expr.Path)
		if !ok {
			if !expr.HasDefault {
				return core.RenderedStatement{}, &UnresolvedPlaceholderError{Path: expr.Path, Pos: pos}
			}
			val = expr.Default
		}

		ordinal := len(args) + 1
		name := bindName(expr.Path, ordinal, names)
		out.WriteString(r.dialect.Placeholder(ordinal, name))
		if r.dialect == BindColon {
			args = append(args, sql.Named(name, val))
		} else {
			args = append(args, val)
		}
	}

	return core.RenderedStatement{
		SQL:  strings.TrimSpace(out.String()),
		Args: args,
	}, nil
}

// bindName derives a parameter name from a placeholder path, unique within
// one statement. Only named dialects use it.
func bindName(path string, ordinal int, taken map[string]struct{}) string {
	name := strings.ReplaceAll(path, ".", "_")
	if _, dup := taken[name]; dup {
		name = name + "_" + strconv.Itoa(ordinal)
	}
	taken[name] = struct{}{}
	return name
}
