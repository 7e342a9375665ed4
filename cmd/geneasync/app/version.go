package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version subcommand.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "geneasync %s\n", a.version)
			_, _ = fmt.Fprintf(w, "  commit:   %s\n", a.commit)
			_, _ = fmt.Fprintf(w, "  built:    %s\n", a.date)
			_, _ = fmt.Fprintf(w, "  built by: %s\n", a.builtBy)
			_, err := fmt.Fprintf(w, "  go:       %s\n", runtime.Version())
			return err
		},
	}
}
