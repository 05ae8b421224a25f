package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Shortcut describes a launcher entry for an installed program.
type Shortcut struct {
	Name       string // display name; also the file name without extension
	Dir        string // directory the shortcut file is written to
	Target     string // absolute path of the program
	Args       []string
	Icon       string
	WorkingDir string
	Comment    string
}

// ShortcutExt returns the shortcut file extension for goos.
func ShortcutExt(goos string) string {
	if goos == "windows" {
		return ".lnk"
	}
	return ".desktop"
}

// ShortcutPath returns where a shortcut with the given name lives in dir.
// The path depends only on (dir, name), so recreating a shortcut replaces it.
func ShortcutPath(dir, name string) string {
	return filepath.Join(dir, name+ShortcutExt(runtime.GOOS))
}

// Path returns the file this shortcut is written to.
func (s Shortcut) Path() string {
	return ShortcutPath(s.Dir, s.Name)
}

// WriteShortcut creates or replaces the shortcut file and returns its path.
func WriteShortcut(s Shortcut) (string, error) {
	if s.Name == "" || s.Dir == "" || s.Target == "" {
		return "", fmt.Errorf("shortcut needs a name, a directory and a target")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("creating shortcut directory %s: %w", s.Dir, err)
	}
	dst := s.Path()
	if err := writeShortcut(dst, s); err != nil {
		return "", fmt.Errorf("writing shortcut %s: %w", dst, err)
	}
	return dst, nil
}
