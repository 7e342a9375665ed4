package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/logging"
)

// Execute runs the geneasync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "geneasync",
		Short:   "Reconcile an online family tree into a local genealogy database",
		Version: a.version,
		Long: `geneasync walks a family tree published on Geneanet from one person and
merges every visited person and union into a local genealogy database.

Local data is authoritative: external values only fill gaps or add precision,
unless --force is given. Every merge decision can be written to a provenance
report.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.geneasync.yaml)")
	rootCmd.PersistentFlags().CountVarP(&a.config.Verbosity, "verbosity", "v", "increase verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v)")

	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	rootCmd.SetVersionTemplate("geneasync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("config") {
		if err := a.reloadConfig(cmd.Flags()); err != nil {
			return err
		}
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// reloadConfig reads the file named by --config, then applies the flags given
// on the command line again so they keep precedence over the file.
func (a *App) reloadConfig(flags *pflag.FlagSet) error {
	config, err := LoadConfig(a.config.ConfigFile)
	if err != nil {
		return err
	}

	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	// Flags are bound to the fields of a.config, so it is updated in place
	*a.config = *config
	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return errors.WrapValidation(name, err)
		}
	}
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(a.NewImportCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
