//go:build integration

package integration_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stagehand-labs/stagehand/internal/engine"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/launcher"
	"github.com/stagehand-labs/stagehand/internal/lifecycle"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

const helloManifest = `app:
  id: "{0F1E2D3C-HELLO}"
  name: Hello
  version: "%s"
  publisher: Hello Labs
  default_dir: "{pf}/Hello"

files:
  - source: hello.sh
    dest: "{app}/bin"
  - source: share
    dest: "{app}/share"
    recurse: true

tasks:
  - id: desktopicon
    description: Create a desktop shortcut
    default: false

shortcuts:
  - name: Hello
    target: "{app}/bin/hello.sh"
  - name: Hello
    target: "{app}/bin/hello.sh"
    location: desktop
    task: desktopicon

run:
  - target: "{app}/bin/hello.sh"
    description: Say hello
    parameters: "'%s'"
    wait: true
`

var quickRetry = retry.Policy{Attempts: 3, Delay: time.Millisecond, Multiplier: 1}

func newInstaller(env *testEnv) *engine.Installer {
	return &engine.Installer{
		Store:       env.Store,
		Environment: env.Env,
		Retry:       quickRetry,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

func newUninstaller(env *testEnv) *receipt.Uninstaller {
	return &receipt.Uninstaller{
		Store:      env.Store,
		Retry:      quickRetry,
		Logger:     slog.New(slog.DiscardHandler),
		Boundaries: append(env.Resolver.Boundaries(), env.StoreDir),
	}
}

func install(t *testing.T, env *testEnv, version, marker string, req tasks.Request) *engine.Installation {
	t.Helper()
	setupBuild(t, env.BuildDir, version)
	m := writeManifest(t, env.BuildDir, fmt.Sprintf(helloManifest, version, marker))
	inst, err := newInstaller(env).Install(context.Background(), engine.Request{
		Manifest: m,
		BuildDir: env.BuildDir,
		Tasks:    req,
	})
	if err != nil {
		t.Fatalf("Install %s: %v", version, err)
	}
	if inst.State != lifecycle.Committed {
		t.Fatalf("Install %s: state %s, want %s", version, inst.State, lifecycle.Committed)
	}
	return inst
}

// TestFullFlowInstallLaunchUninstall drives a manifest from disk through
// install, the post-install launch and uninstall, and checks the profile
// ends up exactly as it started.
func TestFullFlowInstallLaunchUninstall(t *testing.T) {
	env := setupTestEnv(t)
	before := snapshot(t, env.HomeDir, filepath.Join(env.HomeDir, ".stagehand"))
	marker := filepath.Join(t.TempDir(), "launched.txt")

	inst := install(t, env, "1.0.0", marker, tasks.Request{Mode: tasks.ModeExplicit, Requested: []string{"desktopicon"}})
	if inst.Change != engine.ChangeInstall {
		t.Errorf("Change = %s, want %s", inst.Change, engine.ChangeInstall)
	}

	root := inst.Run.InstallRoot
	assertFileExists(t, filepath.Join(root, "bin", "hello.sh"))
	assertFileContains(t, filepath.Join(root, "share", "readme.txt"), "hello 1.0.0")
	assertFileExists(t, filepath.Join(root, "share", "notes", "changes.txt"))

	var shortcuts int
	for _, a := range inst.Log {
		if a.Kind == receipt.KindShortcut {
			shortcuts++
			assertFileExists(t, a.Path)
		}
	}
	if shortcuts != 2 {
		t.Errorf("created %d shortcuts, want 2", shortcuts)
	}

	rep := (&launcher.Launcher{}).Launch(context.Background(), inst.Run)
	if len(rep.Warnings) > 0 {
		t.Fatalf("launch warnings: %v", rep.Warnings)
	}
	assertFileContains(t, marker, "1.0.0")

	records, errs := env.Store.List()
	if len(errs) > 0 || len(records) != 1 {
		t.Fatalf("List = %d records, errors %v", len(records), errs)
	}

	res, err := newUninstaller(env).Uninstall(context.Background(), inst.Record.App.ID)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if res.State != lifecycle.Removed {
		t.Errorf("uninstall state %s, want %s", res.State, lifecycle.Removed)
	}
	if env.Store.Exists(inst.Record.App.ID) {
		t.Error("record still stored after uninstall")
	}

	after := snapshot(t, env.HomeDir, filepath.Join(env.HomeDir, ".stagehand"))
	if !reflect.DeepEqual(before, after) {
		t.Errorf("profile differs after uninstall\nbefore: %v\nafter:  %v", before, after)
	}
}

// TestFullFlowUpgradeRemovesGhosts installs 1.0.0 and then 1.1.0 from a
// build that no longer ships the notes, and checks the old notes are gone.
func TestFullFlowUpgradeRemovesGhosts(t *testing.T) {
	env := setupTestEnv(t)
	marker := filepath.Join(t.TempDir(), "launched.txt")

	first := install(t, env, "1.0.0", marker, tasks.Request{Mode: tasks.ModeSilent})
	notes := filepath.Join(first.Run.InstallRoot, "share", "notes")

	if err := os.RemoveAll(filepath.Join(env.BuildDir, "share", "notes")); err != nil {
		t.Fatal(err)
	}
	// setupBuild recreates the notes, so write the upgraded build by hand.
	writeFile(t, filepath.Join(env.BuildDir, "hello.sh"), "#!/bin/sh\nprintf '1.1.0' > \"$1\"\n", 0755)
	writeFile(t, filepath.Join(env.BuildDir, "share", "readme.txt"), "hello 1.1.0", 0644)
	m := writeManifest(t, env.BuildDir, fmt.Sprintf(helloManifest, "1.1.0", marker))

	second, err := newInstaller(env).Install(context.Background(), engine.Request{
		Manifest: m,
		BuildDir: env.BuildDir,
		Tasks:    tasks.Request{Mode: tasks.ModeSilent},
	})
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if second.Change != engine.ChangeUpgrade || second.PreviousVersion != "1.0.0" {
		t.Errorf("Change = %s from %q, want upgrade from 1.0.0", second.Change, second.PreviousVersion)
	}
	if second.Run.InstallRoot != first.Run.InstallRoot {
		t.Errorf("install root moved from %s to %s", first.Run.InstallRoot, second.Run.InstallRoot)
	}
	if len(second.Ghosts) != 2 {
		t.Errorf("Ghosts = %v, want the old notes file and its directory", second.Ghosts)
	}
	assertFileNotExists(t, filepath.Join(notes, "changes.txt"))
	assertFileNotExists(t, notes)
	assertFileContains(t, filepath.Join(second.Run.InstallRoot, "share", "readme.txt"), "hello 1.1.0")

	stored, err := env.Store.Load(m.App.ID)
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}
	if stored.App.Version != "1.1.0" {
		t.Errorf("stored version %s, want 1.1.0", stored.App.Version)
	}
}

// TestFullFlowUninstallKeepsUserFiles checks that files the user added to
// the install root survive uninstall along with the directories holding them.
func TestFullFlowUninstallKeepsUserFiles(t *testing.T) {
	env := setupTestEnv(t)
	marker := filepath.Join(t.TempDir(), "launched.txt")

	inst := install(t, env, "2.0.0", marker, tasks.Request{Mode: tasks.ModeSilent})
	userFile := filepath.Join(inst.Run.InstallRoot, "share", "my-settings.ini")
	writeFile(t, userFile, "theme=dark", 0644)

	res, err := newUninstaller(env).Uninstall(context.Background(), inst.Record.App.ID)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	assertFileContains(t, userFile, "theme=dark")
	assertFileNotExists(t, filepath.Join(inst.Run.InstallRoot, "share", "readme.txt"))
	assertFileNotExists(t, filepath.Join(inst.Run.InstallRoot, "bin"))
	if len(res.Kept) == 0 || len(res.Warnings) == 0 {
		t.Errorf("expected kept directories with warnings, got kept %v warnings %v", res.Kept, res.Warnings)
	}

	_, err = newUninstaller(env).Uninstall(context.Background(), inst.Record.App.ID)
	if !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("second uninstall: got %v, want not found", err)
	}
}
