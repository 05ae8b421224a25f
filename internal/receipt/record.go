package receipt

import (
	"path/filepath"
	"time"

	"github.com/stagehand-labs/stagehand/internal/manifest"
)

// Kind is the closed set of side effects an install performs.
type Kind string

const (
	KindMkdir       Kind = "mkdir"
	KindCopyFile    Kind = "copy-file"
	KindShortcut    Kind = "create-shortcut"
	KindWriteRecord Kind = "write-record"
)

// Outcome is what an action did to its path.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeReplaced Outcome = "replaced"
	OutcomeKept     Outcome = "kept"
)

// Action is one entry of the action log.
type Action struct {
	Seq     int     `json:"seq"`
	Kind    Kind    `json:"kind"`
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	// Backup holds the pre-existing content while the run is uncommitted.
	// It is always empty in a stored record.
	Backup string `json:"backup,omitempty"`
	// Owned paths are removed by uninstall.
	Owned bool  `json:"owned"`
	Size  int64 `json:"size,omitempty"`
}

// Record is the persisted log of a committed install.
type Record struct {
	App         manifest.AppMetadata `json:"app"`
	InstallRoot string               `json:"install_root"`
	Group       string               `json:"group"`
	RunID       string               `json:"run_id"`
	InstalledAt time.Time            `json:"installed_at"`
	Tasks       []string             `json:"tasks,omitempty"`
	Actions     []Action             `json:"actions"`
}

// Owns reports whether the record claims path.
func (r *Record) Owns(path string) bool {
	if r == nil {
		return false
	}
	path = filepath.Clean(path)
	for _, a := range r.Actions {
		if a.Owned && filepath.Clean(a.Path) == path {
			return true
		}
	}
	return false
}

// Owned returns the owned actions of the given kinds in log order. With no
// kinds, every owned action is returned.
func (r *Record) Owned(kinds ...Kind) []Action {
	var out []Action
	for _, a := range r.Actions {
		if !a.Owned {
			continue
		}
		if len(kinds) == 0 || hasKind(kinds, a.Kind) {
			out = append(out, a)
		}
	}
	return out
}

// Size returns the total bytes of owned copied files.
func (r *Record) Size() int64 {
	var n int64
	for _, a := range r.Owned(KindCopyFile) {
		n += a.Size
	}
	return n
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
