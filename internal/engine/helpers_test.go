package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/platform"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/retry"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

// sandbox is a fake user profile, a build output tree and a record store.
type sandbox struct {
	t        *testing.T
	home     string
	build    string
	store    *receipt.Store
	env      paths.Environment
	resolver *paths.Resolver
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	root := t.TempDir()
	sb := &sandbox{
		t:     t,
		home:  filepath.Join(root, "home"),
		build: filepath.Join(root, "build"),
		store: receipt.NewStore(filepath.Join(root, "store")),
	}
	sb.env = paths.Environment{
		GOOS:    "linux",
		Home:    sb.home,
		TempDir: filepath.Join(sb.home, "tmp"),
		Vars:    map[string]string{},
	}
	sb.resolver = paths.NewResolver(sb.env)
	for _, tok := range []paths.Token{paths.TokenProgramFiles, paths.TokenUserPrograms, paths.TokenUserDesktop, paths.TokenUserAppData} {
		dir, err := sb.resolver.Root(tok)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	sb.write("a.bin", "alpha")
	sb.write("b.bin", "bravo")
	sb.write("icon.ico", "icon")
	return sb
}

func (sb *sandbox) write(rel, content string) string {
	sb.t.Helper()
	p := filepath.Join(sb.build, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		sb.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		sb.t.Fatal(err)
	}
	return p
}

func (sb *sandbox) root(tok paths.Token) string {
	sb.t.Helper()
	dir, err := sb.resolver.Root(tok)
	if err != nil {
		sb.t.Fatal(err)
	}
	return dir
}

func (sb *sandbox) appDir() string {
	return filepath.Join(sb.root(paths.TokenProgramFiles), "Demo")
}

func (sb *sandbox) installer() *Installer {
	return &Installer{
		Store:       sb.store,
		Environment: sb.env,
		Retry:       retry.Policy{Attempts: 3},
		Running:     func(string) ([]platform.Process, error) { return nil, nil },
	}
}

func (sb *sandbox) install(m *manifest.Manifest, sel tasks.Request) (*Installation, error) {
	sb.t.Helper()
	return sb.installer().Install(context.Background(), Request{
		Manifest: m,
		BuildDir: sb.build,
		Tasks:    sel,
		Silent:   sel.Mode == tasks.ModeSilent,
	})
}

func (sb *sandbox) uninstaller() *receipt.Uninstaller {
	return &receipt.Uninstaller{
		Store:      sb.store,
		Boundaries: sb.resolver.Boundaries(),
		Running:    func(string) ([]platform.Process, error) { return nil, nil },
	}
}

// snapshot maps every path under the fake home to its content ("/" for dirs).
func (sb *sandbox) snapshot() map[string]string {
	sb.t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(sb.home, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(sb.home, p)
		if d.IsDir() {
			out[rel] = "/"
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		sb.t.Fatal(err)
	}
	return out
}

func assertSameTree(t *testing.T, want, got map[string]string) {
	t.Helper()
	for p, c := range want {
		if g, ok := got[p]; !ok {
			t.Errorf("missing %s", p)
		} else if g != c {
			t.Errorf("%s changed: %q -> %q", p, c, g)
		}
	}
	for p := range got {
		if _, ok := want[p]; !ok {
			t.Errorf("unexpected %s", p)
		}
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func skipShortcutsOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell links need COM")
	}
}

// demoManifest is three files and a desktop shortcut gated on an optional
// task that is off by default.
func demoManifest() *manifest.Manifest {
	return &manifest.Manifest{
		App: manifest.AppMetadata{
			ID:      "{8A1B2C3D-DEMO}",
			Name:    "Demo",
			Version: "1.4.2",
		},
		Files: []manifest.FileEntry{
			{Source: "a.bin", Dest: "{app}"},
			{Source: "b.bin", Dest: "{app}/lib"},
			{Source: "icon.ico", Dest: `{app}\resources`},
		},
		Tasks: []manifest.TaskEntry{
			{ID: "desktopicon", Description: "Create a desktop shortcut"},
		},
		Shortcuts: []manifest.ShortcutEntry{
			{Name: "Demo", Target: "{app}/a.bin", Icon: "{app}/resources/icon.ico", Location: manifest.LocationDesktop, Task: "desktopicon"},
		},
	}
}
