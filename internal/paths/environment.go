package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment is an immutable snapshot of the OS context that token
// resolution depends on.
type Environment struct {
	GOOS    string
	Home    string
	TempDir string
	Vars    map[string]string
}

// HostEnvironment snapshots the current process environment.
func HostEnvironment() (Environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("resolving home directory: %w", err)
	}
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			vars[k] = v
		}
	}
	return Environment{
		GOOS:    runtime.GOOS,
		Home:    home,
		TempDir: os.TempDir(),
		Vars:    vars,
	}, nil
}

func (e Environment) lookup(key, fallback string) string {
	if v := e.Vars[key]; v != "" {
		return v
	}
	return fallback
}

// wellKnownRoots computes every root except {app} and {group}, which depend
// on the run.
func (e Environment) wellKnownRoots() map[Token]string {
	roots := make(map[Token]string, len(Tokens))
	home := e.Home

	switch e.GOOS {
	case "windows":
		appData := e.lookup("APPDATA", filepath.Join(home, "AppData", "Roaming"))
		roots[TokenProgramFiles] = e.lookup("ProgramFiles", `C:\Program Files`)
		roots[TokenUserAppData] = appData
		roots[TokenLocalAppData] = e.lookup("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))
		roots[TokenUserPrograms] = filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs")
		roots[TokenUserDesktop] = filepath.Join(e.lookup("USERPROFILE", home), "Desktop")
	case "darwin":
		roots[TokenProgramFiles] = filepath.Join(home, "Applications")
		roots[TokenUserAppData] = filepath.Join(home, "Library", "Application Support")
		roots[TokenLocalAppData] = filepath.Join(home, "Library", "Application Support")
		roots[TokenUserPrograms] = filepath.Join(home, "Applications")
		roots[TokenUserDesktop] = filepath.Join(home, "Desktop")
	default:
		data := e.lookup("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
		roots[TokenProgramFiles] = filepath.Join(home, ".local", "opt")
		roots[TokenUserAppData] = e.lookup("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
		roots[TokenLocalAppData] = data
		roots[TokenUserPrograms] = filepath.Join(data, "applications")
		roots[TokenUserDesktop] = e.lookup("XDG_DESKTOP_DIR", filepath.Join(home, "Desktop"))
	}

	tmp := e.TempDir
	if tmp == "" {
		tmp = filepath.Join(home, ".cache")
	}
	roots[TokenTmp] = tmp
	return roots
}
