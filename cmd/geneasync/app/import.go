package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/geneasync/internal/cmd/output"
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/walker"
)

// importFlags are the flags of the import command that only apply to one run.
type importFlags struct {
	ascendants  bool
	descendants bool
	spouses     bool
	level       int
	localID     string
	force       bool
	format      string
}

// NewImportCommand creates the import subcommand.
func (a *App) NewImportCommand() *cobra.Command {
	flags := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <reference>",
		Short: "Reconcile a person and their relatives into the local database",
		Long: `Import fetches the person at <reference> and reconciles it with the local
database, then follows parents, spouses and children up to --level generations.

The reference is the part of the Geneanet URL after the host, for example
"jdupont?lang=fr&n=dupont&oc=0&p=jean".`,
		Example: `  geneasync import -g family.db -a -l 2 "jdupont?lang=fr&n=dupont&p=jean"
  geneasync import -g family.db -i I0042 -s -d "jdupont?lang=fr&n=dupont&p=jean"
  geneasync import --replay fixture.yaml -o json c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, flags, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.ascendants, "ascendants", "a", false, "follow parents")
	f.BoolVarP(&flags.descendants, "descendants", "d", false, "follow children")
	f.BoolVarP(&flags.spouses, "spouse", "s", false, "follow spouses")
	f.IntVarP(&flags.level, "level", "l", constants.DefaultMaxLevel, "number of generations to explore")
	f.StringVarP(&flags.localID, "id", "i", "", "local identifier of the start person")
	f.BoolVarP(&flags.force, "force", "f", false, "let external values win and skip the identity check")
	f.StringVarP(&flags.format, "format", "o", "", "output format: table, json, yaml")

	// Flags backed by the configuration file
	f.StringVarP(&a.config.Database, "database", "g", a.config.Database, "local database (.db for SQLite, any other path for a YAML snapshot)")
	f.StringVar(&a.config.Replay, "replay", a.config.Replay, "read external persons from a YAML fixture instead of the network")
	f.StringVar(&a.config.ProvenanceOut, "provenance-out", a.config.ProvenanceOut, "write the merge decisions of the run to this YAML file")
	f.DurationVar(&a.config.MinDelay, "min-delay", a.config.MinDelay, "minimum pause before every fetch")
	f.DurationVar(&a.config.MaxDelay, "max-delay", a.config.MaxDelay, "maximum pause before every fetch")
	f.StringVar(&a.config.BaseURL, "base-url", a.config.BaseURL, "root external references are resolved against")
	f.StringVar(&a.config.SessionCookie, "session-cookie", a.config.SessionCookie, "session cookie for pages that require a login")

	return cmd
}

// runImport runs one reconciliation walk and prints its report.
func (a *App) runImport(cmd *cobra.Command, flags *importFlags, ref string) error {
	ctx := cmd.Context()
	format, err := output.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	if format == "" {
		format = output.DetectFormat("")
	}

	cfg := walker.Config{
		Verbosity:    a.config.Verbosity,
		Force:        flags.force,
		Ascendants:   flags.ascendants,
		Descendants:  flags.descendants,
		Spouses:      flags.spouses,
		MaxLevel:     flags.level,
		StartRef:     ref,
		StartLocalID: flags.localID,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Force {
		if err := a.announceForce(ctx); err != nil {
			return err
		}
	}

	client, err := a.Client(ctx)
	if err != nil {
		return err
	}

	result, runErr := client.Import(ctx, cfg)
	if result != nil {
		if err := output.Write(cmd.OutOrStdout(), format, output.NewReport(result)); err != nil {
			return err
		}
	}
	if runErr != nil {
		var conflict *errors.IdentityConflictError
		if stderrors.As(runErr, &conflict) {
			a.printConflict(conflict)
		}
		return runErr
	}

	if path := a.config.ProvenanceOut; path != "" {
		if err := client.SaveProvenance(path, result); err != nil {
			return err
		}
		logging.FromContext(ctx).Info().Str("path", path).Int("fields", len(result.Provenance)).Msg("Provenance written")
	}

	return nil
}

// announceForce warns the operator and gives them time to interrupt the run.
func (a *App) announceForce(ctx context.Context) error {
	_, _ = fmt.Fprintf(a.stderr, "Force mode: external values will overwrite local data and identity checks are disabled.\n")
	if a.forceDelay <= 0 {
		return nil
	}
	_, _ = fmt.Fprintf(a.stderr, "Starting in %s, press Ctrl+C to abort.\n", a.forceDelay)

	timer := time.NewTimer(a.forceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// printConflict shows both identities so the operator can fix the data or rerun with --force.
func (a *App) printConflict(conflict *errors.IdentityConflictError) {
	w := a.stderr
	_, _ = fmt.Fprintf(w, "\nThe local person %s does not look like %s.\n", conflict.LocalID, conflict.Reference)
	_, _ = fmt.Fprintf(w, "  %-10s %-20s %-20s\n", "", "local", "external")
	rows := []struct{ name, local, external string }{
		{"firstname", conflict.Local.FirstName, conflict.External.FirstName},
		{"lastname", conflict.Local.LastName, conflict.External.LastName},
		{"birth", conflict.Local.Birth, conflict.External.Birth},
		{"death", conflict.Local.Death, conflict.External.Death},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "  %-10s %-20s %-20s\n", r.name, r.local, r.external)
	}
	_, _ = fmt.Fprintln(w, "Rerun with --force to accept the external values.")
}
