package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/config"
	"github.com/stagehand-labs/stagehand/internal/receipt"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed applications",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents an installed application for display.
type listEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Publisher   string `json:"publisher,omitempty"`
	InstallRoot string `json:"install_root"`
	Size        int64  `json:"size"`
	InstalledAt string `json:"installed_at"`
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	records, errs := receipt.NewStore(config.Current().StoreDir).List()
	for _, err := range errs {
		logger.Warn("skipping unreadable record", "error", err)
	}

	entries := make([]listEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, listEntry{
			ID:          r.App.ID,
			Name:        r.App.Name,
			Version:     r.App.Version,
			Publisher:   r.App.Publisher,
			InstallRoot: r.InstallRoot,
			Size:        r.Size(),
			InstalledAt: r.InstalledAt.Format(time.RFC3339),
		})
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling list: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No applications installed.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Version", "ID", "Location", "Size", "Installed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{
			r.App.Name,
			r.App.Version,
			r.App.ID,
			r.InstallRoot,
			humanize.Bytes(uint64(r.Size())),
			humanize.Time(r.InstalledAt),
		})
	}
	table.Render()
	return nil
}
