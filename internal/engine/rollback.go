package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
)

// abort undoes every logged action, newest first, after action seq failed
// with cause. Undo failures become warnings; the run ends rolled back.
func (x *execution) abort(seq int, a Action, cause error) (*Result, error) {
	x.log.Error("action failed, rolling back", "seq", seq, "kind", a.Kind, "path", a.Path, "error", cause)

	undone := 0
	for i := len(x.entries) - 1; i >= 0; i-- {
		if err := x.undo(x.entries[i]); err != nil {
			x.warn("rollback of %s %s: %v", x.entries[i].Kind, x.entries[i].Path, err)
			continue
		}
		undone++
	}

	if len(x.res.Warnings) == 0 {
		if err := os.RemoveAll(x.staging); err != nil {
			x.warn("removing staging directory %s: %v", x.staging, err)
		}
	} else if _, err := os.Stat(x.staging); err == nil {
		x.warn("displaced files were kept in %s", x.staging)
	}

	if err := x.run.state.To(lifecycle.RolledBack); err != nil {
		x.warn("%v", err)
	}
	x.res.State = x.run.State()
	x.res.Log = x.entries
	x.res.Record = nil

	return x.res, failure.WithWarnings(failure.ErrInstallFailed, cause, x.res.Warnings,
		"%s failed at action %d; rolled back %d of %d completed action(s)", a, seq, undone, len(x.entries))
}

// undo inverts one log entry. Kept entries changed nothing.
func (x *execution) undo(e receipt.Action) error {
	switch e.Outcome {
	case receipt.OutcomeKept:
		return nil
	case receipt.OutcomeReplaced:
		if e.Backup == "" {
			return fmt.Errorf("no backup recorded")
		}
		return x.retryUndo(e.Path, func() error { return restore(e.Backup, e.Path) })
	}

	switch e.Kind {
	case receipt.KindMkdir, receipt.KindCopyFile, receipt.KindShortcut, receipt.KindWriteRecord:
		// Remove only succeeds on an empty directory, so a created
		// directory that gained foreign content is reported, not emptied.
		return x.retryUndo(e.Path, func() error { return removeIfExists(e.Path) })
	default:
		return fmt.Errorf("unknown action kind %q", e.Kind)
	}
}

// retryUndo retries busy targets. It ignores the run's context since a
// cancelled run must still be rolled back.
func (x *execution) retryUndo(path string, fn func() error) error {
	return retry.Do(context.WithoutCancel(x.ctx), x.Retry, x.log, path, fn)
}
