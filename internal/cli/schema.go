package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rishipradeep-think41/foundation-sql/internal/config"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Target string
	Mode   string
	File   string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage target database schemas",
	}
	cmd.AddCommand(newSchemaInitCommand())
	return cmd
}

func newSchemaInitCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "init [ddl-file]",
		Short: "Apply a DDL file to a target",
		Long: `Run every statement of a DDL file against the target in one
transaction. If the target's config entry names a schema_file, it is used
when no file argument is given.`,
		Example: `  foundation-sql schema init schema.sql -t main
  foundation-sql schema init -t warehouse`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaInit(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Target name or connection URL")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Execution mode: sync or async")

	return cmd
}

func runSchemaInit(cmd *cobra.Command, args []string, opts *SchemaOptions) error {
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

	ddlFile := ""
	if len(args) > 0 {
		ddlFile = args[0]
	} else if tc, ok := cfg.Targets[opts.Target]; ok && tc.SchemaFile != "" {
		ddlFile = tc.SchemaFile
	}
	if ddlFile == "" {
		return fmt.Errorf("no DDL file given and the target has no schema_file configured")
	}

	ddl, err := os.ReadFile(ddlFile)
	if err != nil {
		return fmt.Errorf("failed to read DDL file: %w", err)
	}

	runner := newRunner(cmd.Context())
	defer func() { _ = runner.ReleaseAll() }()

	if err := runner.InitSchema(cmd.Context(), target, mode, string(ddl)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", ddlFile)
	return nil
}
