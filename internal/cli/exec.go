package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rishipradeep-think41/foundation-sql/internal/config"
	"github.com/rishipradeep-think41/foundation-sql/pkg/adapter"
	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
	"github.com/rishipradeep-think41/foundation-sql/pkg/query"
	"github.com/rishipradeep-think41/foundation-sql/pkg/template"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Target string
	Mode   string
	Shape  string
	Params []string
	Inline string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [template-file]",
		Short: "Render a SQL template and execute it against a target",
		Long: `Render a SQL template and execute all of its statements in one
transaction. Query results are printed as JSON with double-underscore
columns unflattened into nested objects.`,
		Example: `  # Run a template file against the default target
  foundation-sql exec queries/get_user.sql -p id=42

  # Inline SQL against a named target
  foundation-sql exec -t warehouse -e "SELECT * FROM users WHERE id = {{ id }}" -p id=42

  # Ad-hoc target URL, first row only
  foundation-sql exec -t sqlite:///app.db --shape one -e "SELECT * FROM users LIMIT 1"

  # Statements that return no rows report the affected count
  foundation-sql exec --shape count -e "DELETE FROM sessions WHERE expired = {{ cutoff }}" -p cutoff=true`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Target name or connection URL")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Execution mode: sync or async")
	cmd.Flags().StringVarP(&opts.Shape, "shape", "s", "many", "Result shape: one, many, count, none")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Template parameter as key=value (value parsed as JSON, repeatable)")
	cmd.Flags().StringVarP(&opts.Inline, "expr", "e", "", "Inline SQL template instead of a file")

	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	tmpl, err := readTemplate(args, opts.Inline)
	if err != nil {
		return err
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	shape, err := parseShape(opts.Shape)
	if err != nil {
		return err
	}

	cfg := GetConfig(cmd.Context())
	target, mode, err := cfg.Resolve(opts.Target)
	if err != nil {
		return err
	}
	if opts.Mode != "" {
		if mode, err = config.ParseMode(opts.Mode); err != nil {
			return err
		}
	}

	runner := newRunner(cmd.Context())
	defer func() { _ = runner.ReleaseAll() }()

	res, err := runner.Invoke(cmd.Context(), query.CallSite{
		Target:   target,
		Mode:     mode,
		Template: tmpl,
		Shape:    shape,
	}, params)
	if err != nil {
		return err
	}

	value, err := res.Value()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), value)
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "render [template-file]",
		Short: "Render a SQL template without executing it",
		Long: `Render a SQL template into dialect-bound statements and print them
with their argument lists, without touching the database. The dialect is
taken from the target's URL scheme.`,
		Example: `  foundation-sql render queries/get_user.sql -t warehouse -p id=42
  foundation-sql render -e "SELECT * FROM t WHERE a = {{ a }}; DELETE FROM u" -p a=1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Target name or connection URL (decides the bind dialect)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Template parameter as key=value (value parsed as JSON, repeatable)")
	cmd.Flags().StringVarP(&opts.Inline, "expr", "e", "", "Inline SQL template instead of a file")

	return cmd
}

func runRender(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	tmpl, err := readTemplate(args, opts.Inline)
	if err != nil {
		return err
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	cfg := GetConfig(cmd.Context())
	target, _, err := cfg.Resolve(opts.Target)
	if err != nil {
		return err
	}

	stmts, err := renderForTarget(target, tmpl, params)
	if err != nil {
		return err
	}

	type renderedOut struct {
		SQL  string `json:"sql"`
		Args []any  `json:"args"`
	}
	out := make([]renderedOut, 0, len(stmts))
	for _, s := range stmts {
		args := s.Args
		if args == nil {
			args = []any{}
		}
		out = append(out, renderedOut{SQL: s.SQL, Args: args})
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// renderForTarget renders a template with the bind dialect implied by the
// target URL's scheme.
func renderForTarget(target core.Target, tmpl string, params map[string]any) ([]core.RenderedStatement, error) {
	dialect, err := adapter.DialectFor(target)
	if err != nil {
		return nil, err
	}
	return template.New(dialect).Render(tmpl, params)
}

func readTemplate(args []string, inline string) (string, error) {
	switch {
	case inline != "" && len(args) > 0:
		return "", fmt.Errorf("give either a template file or --expr, not both")
	case inline != "":
		return inline, nil
	case len(args) > 0:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read template: %w", err)
		}
		return string(content), nil
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(content), nil
	default:
		return "", fmt.Errorf("no template given (pass a file, --expr, or pipe stdin)")
	}
}

// parseParams turns repeated key=value flags into a template context.
// Values are parsed as JSON literals so numbers, booleans, and null keep
// their types; anything that fails to parse is taken as a plain string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

func parseShape(s string) (core.ResultShape, error) {
	switch s {
	case "one":
		return core.ShapeOne, nil
	case "many":
		return core.ShapeMany, nil
	case "count":
		return core.ShapeRowCount, nil
	case "none":
		return core.ShapeNone, nil
	default:
		return core.ShapeNone, fmt.Errorf("unknown shape %q (want one, many, count, or none)", s)
	}
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
