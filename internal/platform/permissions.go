package platform

import (
	"fmt"
	"os"
	"runtime"
)

// CopyAttrs gives an installed file the permission bits and modification
// time of its source. Windows has no Unix permission bits, so only the
// read-only attribute carried by the mode is applied there.
func CopyAttrs(dst string, src os.FileInfo) error {
	mode := src.Mode().Perm()
	if runtime.GOOS == "windows" {
		mode &= 0200 | 0444
	}
	if err := os.Chmod(dst, mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, src.ModTime(), src.ModTime()); err != nil {
		return fmt.Errorf("setting times on %s: %w", dst, err)
	}
	return nil
}
