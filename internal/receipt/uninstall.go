package receipt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/platform"
	"github.com/stagehand-labs/stagehand/internal/retry"
)

// Uninstaller inverts stored records.
type Uninstaller struct {
	Store  *Store
	Retry  retry.Policy
	Logger *slog.Logger

	// Boundaries are directories that are never removed, typically the
	// well-known roots of the current user.
	Boundaries []string

	// Running lists processes executing from an install root. Defaults to
	// platform.RunningUnder.
	Running func(root string) ([]platform.Process, error)

	// remove deletes a single file; tests replace it to simulate busy files.
	remove func(path string) error
}

// UninstallResult describes what an uninstall did.
type UninstallResult struct {
	Record *Record
	State  lifecycle.State
	// Removed lists files, shortcuts and directories that were deleted.
	Removed []string
	// Left lists owned files that could not be deleted.
	Left []string
	// Kept lists owned directories that still hold foreign content.
	Kept     []string
	Warnings []string
}

// Uninstall removes everything the record for id owns, newest first, then
// deletes the record itself. An unknown id yields failure.ErrNotFound and
// touches nothing.
func (u *Uninstaller) Uninstall(ctx context.Context, id string) (*UninstallResult, error) {
	log := u.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rec, err := u.Store.Load(id)
	if err != nil {
		return nil, err
	}
	state := lifecycle.New(lifecycle.LogLoaded)
	res := &UninstallResult{Record: rec, State: state.Current()}
	log = log.With("app", rec.App.ID, "run", rec.RunID)

	lock, err := platform.AcquireLock(u.Store.LockDir(), Key(id))
	if err != nil {
		return res, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("releasing install lock", "error", err)
		}
	}()

	if err := platform.CheckIdle(rec.InstallRoot, u.Running); err != nil {
		return res, err
	}

	if err := state.To(lifecycle.Inverting); err != nil {
		return res, err
	}
	res.State = state.Current()

	remove := u.remove
	if remove == nil {
		remove = os.Remove
	}

	var dirs []string
	var causes []error
	for i := len(rec.Actions) - 1; i >= 0; i-- {
		a := rec.Actions[i]
		if !a.Owned {
			continue
		}
		switch a.Kind {
		case KindMkdir:
			dirs = append(dirs, a.Path)
		case KindCopyFile, KindShortcut:
			err := retry.Do(ctx, u.Retry, log, a.Path, func() error {
				err := remove(a.Path)
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			})
			if err != nil {
				log.Warn("could not remove file", "path", a.Path, "error", err)
				res.Left = append(res.Left, a.Path)
				causes = append(causes, err)
				res.Warnings = append(res.Warnings, fmt.Sprintf("could not remove %s: %v", a.Path, err))
				continue
			}
			log.Debug("removed", "kind", a.Kind, "path", a.Path)
			res.Removed = append(res.Removed, a.Path)
		}
	}

	removedDirs, kept := PruneEmptyDirs(dirs, rec.Owns, u.Boundaries)
	res.Removed = append(res.Removed, removedDirs...)
	for _, d := range kept {
		res.Kept = append(res.Kept, d)
		res.Warnings = append(res.Warnings, fmt.Sprintf("left directory %s in place", d))
	}

	if err := u.Store.Delete(id); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not delete install record: %v", err))
		res.Left = append(res.Left, u.Store.Path(id))
		causes = append(causes, err)
	}

	if err := state.To(lifecycle.Removed); err != nil {
		return res, err
	}
	res.State = state.Current()

	if len(res.Left) > 0 {
		return res, failure.WithWarnings(failure.ErrUninstallFailed, errors.Join(causes...), res.Warnings,
			"%d path(s) left behind: %s", len(res.Left), strings.Join(res.Left, ", "))
	}
	log.Info("uninstalled", "removed", len(res.Removed))
	return res, nil
}
