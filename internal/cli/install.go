package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stagehand-labs/stagehand/internal/config"
	"github.com/stagehand-labs/stagehand/internal/engine"
	"github.com/stagehand-labs/stagehand/internal/launcher"
	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

var (
	installSilent   bool
	installRoot     string
	installTasks    string
	installBuildDir string
	installNoLaunch bool
)

var installCmd = &cobra.Command{
	Use:   "install <manifest>",
	Short: "Install an application from a manifest",
	Long: `Install the application described by a manifest (YAML, TOML or JSON).

Files are copied from the build output directory (the manifest's directory
unless --build-dir is given). Optional tasks are chosen interactively, from
--tasks, or from their defaults with --silent. Installing an application that
is already installed repairs or upgrades it in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installSilent, "silent", false, "Install without prompting, using default tasks")
	installCmd.Flags().StringVar(&installRoot, "install-root", "", "Directory to install into")
	installCmd.Flags().StringVar(&installTasks, "tasks", "", "Comma separated list of tasks to select")
	installCmd.Flags().StringVar(&installBuildDir, "build-dir", "", "Build output directory holding the files to install")
	installCmd.Flags().BoolVar(&installNoLaunch, "no-launch", false, "Do not run post-install programs")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	settings := config.Current()
	out := cmd.OutOrStdout()

	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	silent := settings.Silent
	if cmd.Flags().Changed("silent") {
		silent = installSilent
	}
	root := installRoot
	if root == "" {
		root = settings.InstallRoot
	}
	buildDir := installBuildDir
	if buildDir == "" {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving manifest path: %w", err)
		}
		buildDir = filepath.Dir(abs)
	}

	sel := tasks.Request{Mode: tasks.ModeInteractive, In: cmd.InOrStdin(), Out: out}
	switch {
	case cmd.Flags().Changed("tasks"):
		sel = tasks.Request{Mode: tasks.ModeExplicit, Requested: tasks.ParseList(installTasks)}
	case silent:
		sel = tasks.Request{Mode: tasks.ModeSilent}
	}

	env, err := paths.HostEnvironment()
	if err != nil {
		return err
	}
	in := &engine.Installer{
		Store:       receipt.NewStore(settings.StoreDir),
		Environment: env,
		Retry:       retry.Policy{Attempts: settings.RetryAttempts, Delay: settings.RetryDelay},
		Logger:      logger,
	}

	if !silent {
		fmt.Fprintf(out, "Installing %s %s...\n", m.App.Name, m.App.Version)
	}
	inst, err := in.Install(cmd.Context(), engine.Request{
		Manifest:    m,
		BuildDir:    buildDir,
		InstallRoot: root,
		Tasks:       sel,
		Silent:      silent,
	})
	if err != nil {
		return err
	}

	printInstallation(out, inst)
	printWarnings(cmd.ErrOrStderr(), inst.Warnings)

	if installNoLaunch {
		return nil
	}
	rep := (&launcher.Launcher{Logger: logger}).Launch(cmd.Context(), inst.Run)
	for _, name := range rep.Launched {
		fmt.Fprintf(out, "  Started %s\n", name)
	}
	printWarnings(cmd.ErrOrStderr(), rep.Warnings)
	return nil
}

func printInstallation(w io.Writer, inst *engine.Installation) {
	app := inst.Run.Manifest.App
	verb := "Installed"
	switch inst.Change {
	case engine.ChangeUpgrade:
		verb = "Upgraded"
	case engine.ChangeDowngrade:
		verb = "Downgraded"
	case engine.ChangeRepair:
		verb = "Repaired"
	}

	okColor.Fprintf(w, "%s %s %s", verb, app.Name, app.Version)
	if inst.PreviousVersion != "" && inst.Change != engine.ChangeRepair {
		fmt.Fprintf(w, " (was %s)", inst.PreviousVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Location:  %s\n", inst.Run.InstallRoot)
	fmt.Fprintf(w, "  Files:     %d copied (%s), %d replaced, %d kept\n",
		inst.Created, humanize.Bytes(uint64(inst.Bytes)), inst.Replaced, inst.Kept)
	if ids := inst.Run.Selection.IDs(); len(ids) > 0 {
		fmt.Fprintf(w, "  Tasks:     %v\n", ids)
	}
	for _, a := range inst.Log {
		if a.Kind == receipt.KindShortcut {
			fmt.Fprintf(w, "  Shortcut:  %s\n", a.Path)
		}
	}
	if len(inst.Ghosts) > 0 {
		dimColor.Fprintf(w, "  Removed %d file(s) left over from the previous version\n", len(inst.Ghosts))
	}
}
