package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/branding"
	"github.com/stagehand-labs/stagehand/internal/config"
)

var (
	versionShort bool
	versionJSON  bool
)

// versionInfo is what `version --json` prints.
type versionInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Platform string `json:"platform"`
	StoreDir string `json:"store_dir"`
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, buildVersion)
			return nil
		}

		info := versionInfo{
			Name:     branding.CLIName(),
			Version:  buildVersion,
			Commit:   buildCommit,
			Date:     buildDate,
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			StoreDir: config.Current().StoreDir,
		}
		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s version %s (commit: %s, built: %s, %s)\n", info.Name, info.Version, info.Commit, info.Date, info.Platform)
		fmt.Fprintf(out, "records: %s\n", info.StoreDir)
		return nil
	},
}
