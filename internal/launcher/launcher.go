// Package launcher starts the programs a manifest asks to run once an
// install has committed. Launch failures are warnings: the install already
// succeeded and stays committed.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/skratchdot/open-golang/open"
	"github.com/stagehand-labs/stagehand/internal/engine"
	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/manifest"
)

// Launcher runs post-install entries.
type Launcher struct {
	Logger *slog.Logger

	// start and open replace process creation in tests.
	start func(ctx context.Context, cmd Command) error
	open  func(target string, wait bool) error
}

// Command is a resolved program invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Wait bool
}

// Report lists what Launch did with each entry.
type Report struct {
	Launched []string
	Skipped  []string
	Warnings []string
}

// Launch runs the run entries of a committed install in manifest order.
// Entries marked skip_if_silent are skipped in silent mode, as are entries
// gated on a task that was not selected.
func (l *Launcher) Launch(ctx context.Context, run *engine.Run) Report {
	var rep Report
	log := l.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if run.State() != lifecycle.Committed {
		if len(run.Manifest.Run) > 0 {
			rep.Warnings = append(rep.Warnings, "install did not commit; nothing was launched")
		}
		return rep
	}

	for i, e := range run.Manifest.Run {
		label := e.Description
		if label == "" {
			label = e.Target
		}
		if reason := skipReason(e, run); reason != "" {
			log.Debug("skipping run entry", "entry", i, "reason", reason)
			rep.Skipped = append(rep.Skipped, label)
			continue
		}
		if err := l.launch(ctx, run, e); err != nil {
			log.Warn("run entry failed", "entry", i, "target", e.Target, "error", err)
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("could not run %s: %v", label, err))
			continue
		}
		rep.Launched = append(rep.Launched, label)
	}
	return rep
}

func skipReason(e manifest.RunEntry, run *engine.Run) string {
	switch {
	case e.SkipIfSilent && run.Silent:
		return "silent install"
	case !run.Selection.Enabled(e.Task):
		return "task " + e.Task + " not selected"
	default:
		return ""
	}
}

func (l *Launcher) launch(ctx context.Context, run *engine.Run, e manifest.RunEntry) error {
	target, err := run.Resolver.Resolve(e.Target)
	if err != nil {
		return err
	}

	if e.ShellExec {
		openFn := l.open
		if openFn == nil {
			openFn = shellOpen
		}
		return openFn(target, e.Wait)
	}

	args, err := shellquote.Split(e.Parameters)
	if err != nil {
		return fmt.Errorf("parsing parameters: %w", err)
	}
	cmd := Command{Path: target, Args: args, Dir: filepath.Dir(target), Wait: e.Wait}
	startFn := l.start
	if startFn == nil {
		startFn = startProcess
	}
	return startFn(ctx, cmd)
}

func shellOpen(target string, wait bool) error {
	if wait {
		return open.Run(target)
	}
	return open.Start(target)
}

func startProcess(ctx context.Context, c Command) error {
	if c.Wait {
		cmd := exec.CommandContext(ctx, c.Path, c.Args...)
		cmd.Dir = c.Dir
		return cmd.Run()
	}
	// Not bound to ctx: the program outlives the installer.
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
