package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

const testManifest = `app:
  id: "{8A1B2C3D-DEMO}"
  name: Demo
  version: 1.4.2
  publisher: Stagehand Labs
files:
  - source: a.bin
    dest: "{app}"
  - source: b.bin
    dest: "{app}/lib"
`

// sandboxHome points every per-user location at a temp directory.
func sandboxHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("per-user roots come from the Windows shell folders")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STAGEHAND_HOME", filepath.Join(home, ".stagehand"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_DESKTOP_DIR", filepath.Join(home, "Desktop"))
	t.Setenv("STAGEHAND_INSTALL_ROOT", "")
	t.Setenv("STAGEHAND_SILENT", "")
	t.Setenv("STAGEHAND_STORE_DIR", "")
	t.Setenv("STAGEHAND_STORE", "")
	viper.Reset()
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeBuild(t *testing.T, dir string) string {
	t.Helper()
	for name, content := range map[string]string{
		"a.bin":         "alpha",
		"b.bin":         "bravo",
		"manifest.yaml": testManifest,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "manifest.yaml")
}

func TestInstallListUninstall(t *testing.T) {
	home := sandboxHome(t)
	manifestPath := writeBuild(t, t.TempDir())
	root := filepath.Join(home, "Apps", "Demo")

	out, err := run(t, "validate", manifestPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Demo 1.4.2") {
		t.Errorf("validate output: %s", out)
	}

	out, err = run(t, "install", manifestPath, "--silent", "--install-root", root, "--no-launch")
	if err != nil {
		t.Fatalf("install: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Installed Demo 1.4.2") {
		t.Errorf("install output: %s", out)
	}
	if data, err := os.ReadFile(filepath.Join(root, "lib", "b.bin")); err != nil || string(data) != "bravo" {
		t.Fatalf("installed file: %q %v", data, err)
	}

	out, err = run(t, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].InstallRoot != root || entries[0].Size != int64(len("alpha")+len("bravo")) {
		t.Errorf("list entries = %+v", entries)
	}

	out, err = run(t, "uninstall", "--id", "{8A1B2C3D-DEMO}", "--silent")
	if err != nil {
		t.Fatalf("uninstall: %v\n%s", err, out)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("install root survived uninstall: %v", err)
	}

	_, err = run(t, "uninstall", "--id", "{8A1B2C3D-DEMO}", "--silent")
	if !errors.Is(err, failure.ErrNotFound) || failure.ExitCode(err) != failure.ExitNotFound {
		t.Errorf("second uninstall: %v", err)
	}
}

func TestValidateRejectsBrokenManifest(t *testing.T) {
	sandboxHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	broken := strings.Replace(testManifest, `dest: "{app}/lib"`, `dest: "{nowhere}/lib"`, 1)
	if err := os.WriteFile(path, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "validate", path)
	if failure.ExitCode(err) != failure.ExitInvalid {
		t.Errorf("exit code = %d for %v", failure.ExitCode(err), err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, false, "info")
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output: %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, true, "error").Debug("verbose wins")
	if !strings.Contains(buf.String(), "verbose wins") {
		t.Error("--verbose should enable debug output")
	}

	buf.Reset()
	newLogger(&buf, false, "bogus").Info("dropped")
	if buf.Len() != 0 {
		t.Error("unknown levels fall back to warn")
	}
}

func TestVersionJSON(t *testing.T) {
	home := sandboxHome(t)
	t.Cleanup(func() { versionJSON = false })

	out, err := run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out)
	}
	if info.Name != "stagehand" {
		t.Errorf("name = %q", info.Name)
	}
	if !strings.HasPrefix(info.StoreDir, home) {
		t.Errorf("store_dir %q is outside the sandbox %s", info.StoreDir, home)
	}
}
