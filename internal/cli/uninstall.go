package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/config"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
)

var (
	uninstallID     string
	uninstallSilent bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall --id <app-id>",
	Short: "Uninstall an application",
	Long: `Remove everything a committed install of the application created,
newest first, then delete its install record. Files the installer did not
create, and directories that still hold them, are left in place.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallID, "id", "", "Application id from the manifest")
	uninstallCmd.Flags().BoolVar(&uninstallSilent, "silent", false, "Do not ask for confirmation")
	uninstallCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	settings := config.Current()
	out := cmd.OutOrStdout()
	store := receipt.NewStore(settings.StoreDir)

	silent := settings.Silent
	if cmd.Flags().Changed("silent") {
		silent = uninstallSilent
	}

	rec, err := store.Load(uninstallID)
	if err != nil {
		return err
	}

	if !silent {
		fmt.Fprintf(out, "? Remove %s %s from %s? (Y/n) ", rec.App.Name, rec.App.Version, rec.InstallRoot)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if scanner.Scan() {
			answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if answer != "" && answer != "y" && answer != "yes" {
				fmt.Fprintln(out, "Uninstall cancelled.")
				return nil
			}
		}
	}

	env, err := paths.HostEnvironment()
	if err != nil {
		return err
	}
	u := &receipt.Uninstaller{
		Store:      store,
		Retry:      retry.Policy{Attempts: settings.RetryAttempts, Delay: settings.RetryDelay},
		Logger:     logger,
		Boundaries: append(paths.NewResolver(env).Boundaries(), store.Dir()),
	}

	res, err := u.Uninstall(cmd.Context(), uninstallID)
	if res != nil && len(res.Removed) > 0 {
		okColor.Fprintf(out, "Uninstalled %s %s", rec.App.Name, rec.App.Version)
		fmt.Fprintf(out, " (%d path(s) removed)\n", len(res.Removed))
	}
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), res.Warnings)
	return nil
}
