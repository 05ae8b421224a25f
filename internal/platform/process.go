package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

// Process is a running program found inside an install root.
type Process struct {
	PID  int32
	Name string
	Exe  string
}

// RunningUnder lists processes whose executable lives inside root, excluding
// the current process. Processes whose executable path cannot be read (for
// example, owned by another user) are ignored.
func RunningUnder(root string) ([]Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	self := int32(os.Getpid())
	var found []Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		exe, err := p.Exe()
		if err != nil || exe == "" {
			continue
		}
		if !inside(root, exe) {
			continue
		}
		name, _ := p.Name()
		found = append(found, Process{PID: p.Pid, Name: name, Exe: exe})
	}
	return found, nil
}

func inside(root, target string) bool {
	if runtime.GOOS == "windows" {
		root = strings.ToLower(root)
		target = strings.ToLower(target)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// CheckIdle fails with failure.ErrResourceBusy when a process is running from
// root. list defaults to RunningUnder. Listing errors are ignored since busy
// files are still caught and retried when they are touched.
func CheckIdle(root string, list func(string) ([]Process, error)) error {
	if root == "" {
		return nil
	}
	if list == nil {
		list = RunningUnder
	}
	procs, err := list(filepath.Clean(root))
	if err != nil || len(procs) == 0 {
		return nil
	}
	p := procs[0]
	return failure.New(failure.ErrResourceBusy, "%s is running from %s (pid %d)", p.Name, root, p.PID)
}
