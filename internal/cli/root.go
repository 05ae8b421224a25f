package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/branding"
	"github.com/stagehand-labs/stagehand/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs desktop applications from declarative manifests.
Every install is transactional: a failure rolls back what was done, and a
committed install records exactly what it owns so it can be uninstalled.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		logger = newLogger(cmd.ErrOrStderr(), verbose, config.Current().LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// Execute runs the root command with build info injected via ldflags.
// An interrupt cancels the running command; an install in progress rolls back.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds the stderr logger. --verbose forces debug; otherwise the
// configured level applies, defaulting to warn.
func newLogger(w io.Writer, verbose bool, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
