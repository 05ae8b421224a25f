package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/platform"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
)

// Executor applies planned actions and keeps the action log.
type Executor struct {
	Store *receipt.Store
	Retry retry.Policy

	// before runs ahead of every attempt at an action; tests use it to
	// inject failures and busy files.
	before func(seq int, a Action) error
}

// Result summarizes a finished run.
type Result struct {
	RunID  string
	State  lifecycle.State
	Record *receipt.Record
	// Log is the action log as executed, including backups for a run that
	// rolled back.
	Log []receipt.Action

	Created  int
	Replaced int
	Kept     int
	Bytes    int64

	// Ghosts are files of the previous install removed after commit.
	Ghosts   []string
	Warnings []string
}

type execution struct {
	*Executor
	ctx     context.Context
	run     *Run
	log     *slog.Logger
	staging string
	entries []receipt.Action
	res     *Result
}

// Execute runs actions in order. The first failure, including a cancelled
// context, undoes every completed action in reverse and returns an error of
// kind failure.ErrInstallFailed.
func (e *Executor) Execute(ctx context.Context, r *Run, actions []Action) (*Result, error) {
	if err := r.state.To(lifecycle.Executing); err != nil {
		return nil, err
	}
	x := &execution{
		Executor: e,
		ctx:      ctx,
		run:      r,
		log:      r.Logger,
		staging:  e.Store.StagingDir(r.ID),
		res:      &Result{RunID: r.ID},
	}
	x.log.Info("executing install", "actions", len(actions))

	for i, a := range actions {
		seq := i + 1
		if err := ctx.Err(); err != nil {
			return x.abort(seq, a, err)
		}
		entry, err := x.apply(seq, a)
		if err != nil {
			return x.abort(seq, a, err)
		}
		x.entries = append(x.entries, entry)
		x.log.Debug("action done", "seq", seq, "kind", a.Kind, "path", a.Path, "outcome", entry.Outcome)
	}
	return x.commit()
}

// attempt runs fn, retrying while the target is busy.
func (x *execution) attempt(seq int, a Action, fn func() error) error {
	return retry.Do(x.ctx, x.Retry, x.log, a.Path, func() error {
		if x.before != nil {
			if err := x.before(seq, a); err != nil {
				return err
			}
		}
		return fn()
	})
}

func (x *execution) apply(seq int, a Action) (receipt.Action, error) {
	entry := receipt.Action{Seq: seq, Kind: a.Kind, Path: a.Path}
	var err error
	switch a.Kind {
	case receipt.KindMkdir:
		err = x.attempt(seq, a, func() error { return x.mkdir(&entry) })
	case receipt.KindCopyFile:
		err = x.attempt(seq, a, func() error { return x.copy(a, &entry) })
	case receipt.KindShortcut:
		err = x.attempt(seq, a, func() error { return x.shortcut(a, &entry) })
	case receipt.KindWriteRecord:
		err = x.attempt(seq, a, func() error { return x.writeRecord(&entry) })
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return entry, err
}

func (x *execution) mkdir(entry *receipt.Action) error {
	info, err := os.Stat(entry.Path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", entry.Path)
		}
		entry.Outcome = receipt.OutcomeKept
		entry.Owned = x.run.Previous.Owns(entry.Path)
		return nil
	}
	if err := os.Mkdir(entry.Path, 0755); err != nil {
		return err
	}
	entry.Outcome = receipt.OutcomeCreated
	entry.Owned = true
	return nil
}

func (x *execution) copy(a Action, entry *receipt.Action) error {
	srcInfo, err := os.Stat(a.Source)
	if err != nil {
		return err
	}
	dstInfo, err := os.Lstat(a.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		n, err := copyFile(a.Source, a.Path)
		if err != nil {
			removeIfExists(a.Path)
			return err
		}
		entry.Outcome, entry.Owned, entry.Size = receipt.OutcomeCreated, true, n
		x.res.Created++
		x.res.Bytes += n
		return nil
	case err != nil:
		return err
	case dstInfo.IsDir():
		return fmt.Errorf("%s exists and is a directory", a.Path)
	}

	replace, err := shouldReplace(a.Policy, a.Source, a.Path, srcInfo, dstInfo)
	if err != nil {
		return err
	}
	if !replace {
		entry.Outcome = receipt.OutcomeKept
		entry.Owned = x.run.Previous.Owns(a.Path)
		entry.Size = dstInfo.Size()
		x.res.Kept++
		return nil
	}

	backup, err := stash(a.Path, x.staging, entry.Seq)
	if err != nil {
		return err
	}
	n, err := copyFile(a.Source, a.Path)
	if err != nil {
		if rerr := restore(backup, a.Path); rerr != nil {
			x.warn("could not restore %s after failed copy: %v", a.Path, rerr)
		}
		return err
	}
	entry.Outcome, entry.Owned, entry.Size, entry.Backup = receipt.OutcomeReplaced, true, n, backup
	x.res.Replaced++
	x.res.Bytes += n
	return nil
}

func (x *execution) shortcut(a Action, entry *receipt.Action) error {
	entry.Outcome = receipt.OutcomeCreated
	if _, err := os.Lstat(a.Path); err == nil {
		backup, err := stash(a.Path, x.staging, entry.Seq)
		if err != nil {
			return err
		}
		entry.Outcome, entry.Backup = receipt.OutcomeReplaced, backup
	}
	if _, err := platform.WriteShortcut(a.Shortcut); err != nil {
		if entry.Backup != "" {
			if rerr := restore(entry.Backup, a.Path); rerr != nil {
				x.warn("could not restore %s after failed shortcut: %v", a.Path, rerr)
			}
			entry.Backup = ""
		}
		return err
	}
	entry.Owned = true
	return nil
}

func (x *execution) writeRecord(entry *receipt.Action) error {
	entry.Outcome = receipt.OutcomeCreated
	if _, err := os.Lstat(entry.Path); err == nil {
		backup, err := stash(entry.Path, x.staging, entry.Seq)
		if err != nil {
			return err
		}
		entry.Outcome, entry.Backup = receipt.OutcomeReplaced, backup
	}

	rec := x.record(*entry)
	if err := x.Store.Save(rec); err != nil {
		if entry.Backup != "" {
			if rerr := restore(entry.Backup, entry.Path); rerr != nil {
				x.warn("could not restore previous record: %v", rerr)
			}
			entry.Backup = ""
		}
		return err
	}
	x.res.Record = rec
	return nil
}

// record builds the persisted form of the log, self included.
func (x *execution) record(self receipt.Action) *receipt.Record {
	actions := make([]receipt.Action, 0, len(x.entries)+1)
	for _, a := range x.entries {
		a.Backup = ""
		actions = append(actions, a)
	}
	self.Backup = ""
	actions = append(actions, self)
	return &receipt.Record{
		App:         x.run.Manifest.App,
		InstallRoot: x.run.InstallRoot,
		Group:       x.run.Manifest.App.GroupName(),
		RunID:       x.run.ID,
		InstalledAt: time.Now().UTC(),
		Tasks:       x.run.Selection.IDs(),
		Actions:     actions,
	}
}

func (x *execution) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	x.log.Warn(msg)
	x.res.Warnings = append(x.res.Warnings, msg)
}
