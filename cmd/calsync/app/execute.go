package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/caremesh/calsync/pkg/logging"
)

// Execute runs the calsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "calsync",
		Short:   "Bidirectional calendar reconciliation",
		Version: a.version,
		Long: `Calsync reconciles appointments between a workplace calendar and a
care platform. Each invocation performs one full pass: care-side changes
are pushed to the workplace calendar, workplace changes are pushed back,
and orphaned placeholders on either side are cancelled.

The tool is designed to run on a schedule; a pass that hits per-record
errors still exits zero so the next pass can retry them.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE:              a.runSync,
	}

	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("calsync {{.Version}}\n")

	return rootCmd
}

// setupCommand is called before the command runs. Flags are defined as
// persistent flags above, so lookup errors indicate programming errors.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	a.config.Verbose = mustGetBool(cmd, "verbose")
	a.config.Quiet = mustGetBool(cmd, "quiet")
	a.config.LogLevel = mustGetString(cmd, "log-level")

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)

	return nil
}

// runSync performs a single reconciliation pass. Construction failures
// (bad config, unreachable wiring) surface as errors; record-level
// failures are reported in the result and logged, not returned.
func (a *App) runSync(cmd *cobra.Command, _ []string) error {
	runner, err := a.NewRunner()
	if err != nil {
		return err
	}

	result := runner.Run(cmd.Context())
	if result.HasFailures() {
		a.logger.Warn().
			Int("failed", result.Failed).
			Msg("Reconciliation pass completed with failures")
	}
	return nil
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(err)
	}
	return v
}

func mustGetString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(err)
	}
	return v
}
