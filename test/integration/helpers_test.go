//go:build integration

package integration_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/receipt"
)

// testEnv holds paths for an isolated user profile.
type testEnv struct {
	HomeDir  string
	BuildDir string
	StoreDir string
	Env      paths.Environment
	Resolver *paths.Resolver
	Store    *receipt.Store
}

// setupTestEnv points HOME and the stagehand variables at a temp dir so
// nothing touches the real profile, and creates the well-known roots the
// way a desktop session would have them.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("integration suite drives POSIX shell scripts")
	}

	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "home")
	storeDir := filepath.Join(homeDir, ".stagehand", "records")

	t.Setenv("HOME", homeDir)
	t.Setenv("STAGEHAND_HOME", filepath.Join(homeDir, ".stagehand"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(homeDir, ".local", "share"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDir, ".config"))
	t.Setenv("XDG_DESKTOP_DIR", "")

	env, err := paths.HostEnvironment()
	if err != nil {
		t.Fatalf("HostEnvironment: %v", err)
	}
	resolver := paths.NewResolver(env)
	for _, tok := range []paths.Token{paths.TokenProgramFiles, paths.TokenUserPrograms, paths.TokenUserDesktop, paths.TokenUserAppData, paths.TokenLocalAppData} {
		dir, err := resolver.Root(tok)
		if err != nil {
			t.Fatalf("Root(%s): %v", tok, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	return &testEnv{
		HomeDir:  homeDir,
		BuildDir: filepath.Join(tmpDir, "build"),
		StoreDir: storeDir,
		Env:      env,
		Resolver: resolver,
		Store:    receipt.NewStore(storeDir),
	}
}

// setupBuild lays out a build output with a launcher script that records
// its arguments into the file named by its first parameter.
func setupBuild(t *testing.T, buildDir, version string) {
	t.Helper()
	writeFile(t, filepath.Join(buildDir, "hello.sh"), "#!/bin/sh\nprintf '%s' \""+version+"\" > \"$1\"\n", 0755)
	writeFile(t, filepath.Join(buildDir, "share", "readme.txt"), "hello "+version, 0644)
	writeFile(t, filepath.Join(buildDir, "share", "notes", "changes.txt"), "changes in "+version, 0644)
}

// writeManifest writes a YAML manifest next to the build output and loads it.
func writeManifest(t *testing.T, buildDir, content string) *manifest.Manifest {
	t.Helper()
	path := filepath.Join(buildDir, "stagehand.yaml")
	writeFile(t, path, content, 0644)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected file to exist: %s", path)
		return
	}
	if info.IsDir() {
		t.Errorf("expected file but got directory: %s", path)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("expected path to not exist: %s", path)
	}
}

func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("expected %s to contain %q, got:\n%s", path, substr, string(data))
	}
}

// snapshot lists every path under root except the record store.
func snapshot(t *testing.T, root, skip string) map[string]bool {
	t.Helper()
	tree := make(map[string]bool)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == skip {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(root, p)
		tree[rel] = d.IsDir()
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return tree
}
