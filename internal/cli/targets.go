package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewTargetsCommand creates the targets command.
func NewTargetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List configured targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			if len(cfg.Targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No targets configured.")
				return nil
			}

			for _, name := range cfg.TargetNames() {
				tc := cfg.Targets[name]
				marker := " "
				if name == cfg.DefaultTarget {
					marker = "*"
				}
				mode := tc.Mode
				if mode == "" {
					mode = "default"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-16s %-8s %s\n", marker, name, mode, redactURL(tc.URL))
			}
			return nil
		},
	}
}

// redactURL hides credentials in a connection URL for display.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
