package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

// Run carries the state of a single install invocation.
type Run struct {
	ID          string
	Manifest    *manifest.Manifest
	BuildDir    string
	Silent      bool
	InstallRoot string
	Resolver    *paths.Resolver
	Selection   tasks.Selection
	// Previous is the record of an earlier install of the same app, if any.
	Previous *receipt.Record
	Logger   *slog.Logger

	state *lifecycle.Machine
}

// NewRun starts a run for a loaded manifest. Sources are read relative to
// buildDir.
func NewRun(m *manifest.Manifest, buildDir string, silent bool, log *slog.Logger) *Run {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	id := uuid.NewString()
	return &Run{
		ID:       id,
		Manifest: m,
		BuildDir: buildDir,
		Silent:   silent,
		Logger:   log.With("run", id, "app", m.App.ID),
		state:    lifecycle.New(lifecycle.Loaded),
	}
}

// State returns the run's current phase.
func (r *Run) State() lifecycle.State { return r.state.Current() }

// Resolve picks the install root and binds the path resolver to it.
// explicitRoot comes from the command line or configuration and wins over
// the previous install's location and the manifest default.
func (r *Run) Resolve(env paths.Environment, explicitRoot string, prev *receipt.Record) error {
	base := paths.NewResolver(env)
	root, err := ChooseInstallRoot(base, explicitRoot, prev, r.Manifest.App)
	if err != nil {
		return err
	}
	bound, err := base.Bind(root, r.Manifest.App.GroupName())
	if err != nil {
		return err
	}
	r.InstallRoot = root
	r.Resolver = bound
	r.Previous = prev
	r.Logger = r.Logger.With("install_root", root)
	return r.state.To(lifecycle.Resolved)
}

// Select records the active tasks.
func (r *Run) Select(sel tasks.Selection) error {
	if sel == nil {
		sel = tasks.Selection{}
	}
	r.Selection = sel
	return r.state.To(lifecycle.Selected)
}

// ChooseInstallRoot applies the install root precedence: explicit value,
// then the root of a previous install so a repair stays in place, then the
// manifest's default directory.
func ChooseInstallRoot(base *paths.Resolver, explicit string, prev *receipt.Record, app manifest.AppMetadata) (string, error) {
	switch {
	case explicit != "":
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolving install root %s: %w", explicit, err)
		}
		return abs, nil
	case prev != nil && prev.InstallRoot != "":
		return prev.InstallRoot, nil
	default:
		return base.Resolve(app.InstallDirDefault())
	}
}
