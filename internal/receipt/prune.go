package receipt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stagehand-labs/stagehand/internal/paths"
)

// PruneEmptyDirs removes the directories in dirs that are empty, deepest
// first, so a parent emptied by removing its children goes too. Directories
// that still hold content are left in place and returned as kept, as is any
// directory that is or contains one of the boundaries unless created reports
// that the install being undone made it. Filesystem roots are always kept.
func PruneEmptyDirs(dirs []string, created func(dir string) bool, boundaries []string) (removed, kept []string) {
	uniq := make(map[string]bool, len(dirs))
	var ordered []string
	for _, d := range dirs {
		d = filepath.Clean(d)
		if !uniq[d] {
			uniq[d] = true
			ordered = append(ordered, d)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := depth(ordered[i]), depth(ordered[j])
		if di != dj {
			return di > dj
		}
		return ordered[i] > ordered[j]
	})

	for _, d := range ordered {
		if guarded(d, boundaries) && (created == nil || !created(d) || filepath.Dir(d) == d) {
			kept = append(kept, d)
			continue
		}
		info, err := os.Lstat(d)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			kept = append(kept, d)
			continue
		}
		if !info.IsDir() {
			continue
		}
		// Remove fails on non-empty directories, which is what we want.
		if err := os.Remove(d); err != nil {
			kept = append(kept, d)
			continue
		}
		removed = append(removed, d)
	}
	return removed, kept
}

func guarded(dir string, boundaries []string) bool {
	if filepath.Dir(dir) == dir {
		return true
	}
	for _, b := range boundaries {
		if paths.Within(dir, filepath.Clean(b)) {
			return true
		}
	}
	return false
}

func depth(p string) int {
	return strings.Count(filepath.ToSlash(p), "/")
}
