package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Check a manifest without installing it",
	Long: `Validate a manifest against the schema, then check its references:
task gates, symbolic paths, and shortcut or run targets under {app}.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	result, err := manifest.ValidateFile(args[0])
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err != nil {
		return failure.Wrap(failure.ErrMalformedManifest, err, "%s", args[0])
	}
	if !result.Valid {
		for _, issue := range result.Issues {
			errColor.Fprint(out, "  ✗ ")
			fmt.Fprintf(out, "%s: %s\n", issue.Path, issue.Message)
		}
		return failure.New(failure.ErrMalformedManifest, "%s: %d schema issue(s)", args[0], len(result.Issues))
	}

	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	okColor.Fprint(out, "✓ ")
	fmt.Fprintf(out, "%s %s (%s): %d file entries, %d tasks, %d shortcuts, %d run entries\n",
		m.App.Name, m.App.Version, m.App.ID, len(m.Files), len(m.Tasks), len(m.Shortcuts), len(m.Run))
	return nil
}
