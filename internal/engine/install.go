package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/platform"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

// Change classifies an install against the previous one.
type Change string

const (
	ChangeInstall   Change = "install"
	ChangeUpgrade   Change = "upgrade"
	ChangeRepair    Change = "repair"
	ChangeDowngrade Change = "downgrade"
)

// Installer drives a complete install: resolve, select, pre-flight checks,
// plan and execute.
type Installer struct {
	Store       *receipt.Store
	Environment paths.Environment
	Retry       retry.Policy
	Logger      *slog.Logger

	// Running lists processes executing from the install root. Defaults to
	// platform.RunningUnder.
	Running func(root string) ([]platform.Process, error)

	before func(seq int, a Action) error
}

// Request describes one install.
type Request struct {
	Manifest *manifest.Manifest
	BuildDir string
	// InstallRoot overrides the previous and default locations when set.
	InstallRoot string
	Tasks       tasks.Request
	Silent      bool
}

// Installation is the outcome of Install.
type Installation struct {
	*Result
	Run             *Run
	Change          Change
	PreviousVersion string
}

// Install performs req. Pre-flight failures (lock held, app running) are
// reported as failure.ErrResourceBusy before anything on disk changes.
func (in *Installer) Install(ctx context.Context, req Request) (*Installation, error) {
	m := req.Manifest
	run := NewRun(m, req.BuildDir, req.Silent, in.Logger)

	prev, err := in.Store.Load(m.App.ID)
	switch {
	case errors.Is(err, failure.ErrNotFound):
		prev = nil
	case err != nil:
		return nil, err
	}

	if err := run.Resolve(in.Environment, req.InstallRoot, prev); err != nil {
		return nil, err
	}

	sel, err := tasks.Select(m.Tasks, req.Tasks)
	if err != nil {
		return nil, err
	}
	if err := run.Select(sel); err != nil {
		return nil, err
	}

	lock, err := platform.AcquireLock(in.Store.LockDir(), receipt.Key(m.App.ID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			run.Logger.Warn("releasing install lock", "error", err)
		}
	}()
	if err := platform.CheckIdle(run.InstallRoot, in.Running); err != nil {
		return nil, err
	}

	actions, err := Plan(run, in.Store.Path(m.App.ID))
	if err != nil {
		return nil, err
	}

	inst := &Installation{Run: run, Change: classify(prev, m.App.Version)}
	if prev != nil {
		inst.PreviousVersion = prev.App.Version
	}
	run.Logger.Info("starting install", "change", inst.Change, "version", m.App.Version, "tasks", sel.IDs())

	exec := &Executor{Store: in.Store, Retry: in.Retry, before: in.before}
	res, err := exec.Execute(ctx, run, actions)
	inst.Result = res
	return inst, err
}

func classify(prev *receipt.Record, version string) Change {
	if prev == nil {
		return ChangeInstall
	}
	pv, perr := semver.NewVersion(prev.App.Version)
	nv, nerr := semver.NewVersion(version)
	if perr != nil || nerr != nil {
		if prev.App.Version == version {
			return ChangeRepair
		}
		return ChangeUpgrade
	}
	switch nv.Compare(pv) {
	case 1:
		return ChangeUpgrade
	case -1:
		return ChangeDowngrade
	default:
		return ChangeRepair
	}
}
