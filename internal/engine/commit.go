package engine

import (
	"os"
	"path/filepath"

	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
)

// commit finalizes a run whose record has been written.
func (x *execution) commit() (*Result, error) {
	if err := x.run.state.To(lifecycle.Committed); err != nil {
		return x.res, err
	}
	x.res.State = x.run.State()
	x.res.Log = x.entries

	if err := os.RemoveAll(x.staging); err != nil {
		x.warn("removing staging directory %s: %v", x.staging, err)
	}
	// Drop the parent too once no other run is staging.
	os.Remove(filepath.Dir(x.staging))

	x.bustGhosts()

	x.log.Info("install committed",
		"created", x.res.Created,
		"replaced", x.res.Replaced,
		"kept", x.res.Kept,
		"bytes", x.res.Bytes,
		"ghosts", len(x.res.Ghosts))
	return x.res, nil
}

// bustGhosts removes files the previous install owned that this install no
// longer lays down, then the directories that only they kept alive. Failures
// are warnings since the new install is already committed.
func (x *execution) bustGhosts() {
	prev := x.run.Previous
	if prev == nil {
		return
	}

	current := make(map[string]bool, len(x.entries))
	for _, e := range x.entries {
		current[filepath.Clean(e.Path)] = true
	}

	var dirs []string
	for i := len(prev.Actions) - 1; i >= 0; i-- {
		a := prev.Actions[i]
		if !a.Owned || current[filepath.Clean(a.Path)] {
			continue
		}
		switch a.Kind {
		case receipt.KindMkdir:
			dirs = append(dirs, a.Path)
		case receipt.KindCopyFile, receipt.KindShortcut:
			err := retry.Do(x.ctx, x.Retry, x.log, a.Path, func() error { return removeIfExists(a.Path) })
			if err != nil {
				x.warn("leaving ghost file %s behind: %v", a.Path, err)
				continue
			}
			x.res.Ghosts = append(x.res.Ghosts, a.Path)
		}
	}

	if len(dirs) > 0 {
		removed, kept := receipt.PruneEmptyDirs(dirs, prev.Owns, x.run.Resolver.Boundaries())
		x.res.Ghosts = append(x.res.Ghosts, removed...)
		for _, d := range kept {
			x.warn("left directory %s in place", d)
		}
	}
}
