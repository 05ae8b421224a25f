package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/receipt"
	"github.com/stagehand-labs/stagehand/internal/tasks"
)

func plannedRun(t *testing.T, sb *sandbox, m *manifest.Manifest, sel tasks.Selection) *Run {
	t.Helper()
	r := NewRun(m, sb.build, true, nil)
	if err := r.Resolve(sb.env, "", nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Select(sel); err != nil {
		t.Fatal(err)
	}
	return r
}

func kinds(actions []Action) []receipt.Kind {
	out := make([]receipt.Kind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestPlanOrder(t *testing.T) {
	sb := newSandbox(t)
	r := plannedRun(t, sb, demoManifest(), tasks.Selection{})

	actions, err := Plan(r, "record.json")
	if err != nil {
		t.Fatal(err)
	}
	want := []receipt.Kind{
		receipt.KindMkdir, receipt.KindCopyFile,
		receipt.KindMkdir, receipt.KindCopyFile,
		receipt.KindMkdir, receipt.KindCopyFile,
		receipt.KindWriteRecord,
	}
	got := kinds(actions)
	if len(got) != len(want) {
		t.Fatalf("plan = %v, want %v", actions, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d = %s, want %s", i+1, got[i], want[i])
		}
	}
	if actions[0].Path != sb.appDir() {
		t.Errorf("first action should create the install root, got %s", actions[0])
	}
	if last := actions[len(actions)-1]; last.Path != "record.json" {
		t.Errorf("last action = %s", last)
	}
}

func TestPlanIncludesSelectedShortcut(t *testing.T) {
	sb := newSandbox(t)
	m := demoManifest()
	m.Shortcuts[0].Parameters = `--profile "my profile"`
	r := plannedRun(t, sb, m, tasks.Selection{"desktopicon": true})

	actions, err := Plan(r, "record.json")
	if err != nil {
		t.Fatal(err)
	}
	var sc *Action
	for i := range actions {
		if actions[i].Kind == receipt.KindShortcut {
			sc = &actions[i]
		}
	}
	if sc == nil {
		t.Fatal("selected shortcut not planned")
	}
	if sc.Shortcut.Target != filepath.Join(sb.appDir(), "a.bin") {
		t.Errorf("target = %s", sc.Shortcut.Target)
	}
	if len(sc.Shortcut.Args) != 2 || sc.Shortcut.Args[1] != "my profile" {
		t.Errorf("args = %q", sc.Shortcut.Args)
	}
	if filepath.Dir(sc.Path) != sb.root("userdesktop") {
		t.Errorf("shortcut path = %s", sc.Path)
	}
}

func TestPlanCreatesMissingAncestors(t *testing.T) {
	sb := newSandbox(t)
	r := NewRun(demoManifest(), sb.build, true, nil)
	deep := filepath.Join(sb.home, "a", "b", "Demo")
	if err := r.Resolve(sb.env, deep, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Select(nil); err != nil {
		t.Fatal(err)
	}
	actions, err := Plan(r, "record.json")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(sb.home, "a"), filepath.Join(sb.home, "a", "b"), deep}
	for i, p := range want {
		if actions[i].Kind != receipt.KindMkdir || actions[i].Path != p {
			t.Errorf("action %d = %s, want mkdir %s", i+1, actions[i], p)
		}
	}
}

func TestExpandSource(t *testing.T) {
	sb := newSandbox(t)
	sb.write("dist/app.exe", "x")
	sb.write("dist/readme.txt", "x")
	sb.write("dist/plugins/one.dll", "x")
	sb.write("dist/plugins/deep/two.dll", "x")

	tests := []struct {
		name  string
		entry manifest.FileEntry
		want  []string
	}{
		{"single file", manifest.FileEntry{Source: "a.bin"}, []string{"a.bin"}},
		{"renamed", manifest.FileEntry{Source: "a.bin", DestName: "alpha.bin"}, []string{"alpha.bin"}},
		{"wildcard", manifest.FileEntry{Source: "dist/*"}, []string{"app.exe", "readme.txt"}},
		{"wildcard recurse", manifest.FileEntry{Source: `dist\*.dll`, Recurse: true}, []string{"plugins/deep/two.dll", "plugins/one.dll"}},
		{"directory recurse", manifest.FileEntry{Source: "dist/plugins", Recurse: true}, []string{"deep/two.dll", "one.dll"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := expandSource(sb.build, tt.entry)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, f := range files {
				got = append(got, f.rel)
			}
			sort.Strings(got)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestExpandSourceErrors(t *testing.T) {
	sb := newSandbox(t)
	sb.write("dist/app.exe", "x")

	tests := []struct {
		name  string
		entry manifest.FileEntry
		kind  error
	}{
		{"missing file", manifest.FileEntry{Source: "nope.bin"}, failure.ErrUnresolvedReference},
		{"no matches", manifest.FileEntry{Source: "dist/*.dll"}, failure.ErrUnresolvedReference},
		{"missing directory", manifest.FileEntry{Source: "gone/*"}, failure.ErrUnresolvedReference},
		{"directory without recurse", manifest.FileEntry{Source: "dist"}, failure.ErrMalformedManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expandSource(sb.build, tt.entry)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestShouldReplace(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string, mod time.Time) (string, os.FileInfo) {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mod, mod); err != nil {
			t.Fatal(err)
		}
		info, _ := os.Stat(p)
		return p, info
	}
	old := time.Now().Add(-time.Hour)
	now := time.Now()

	src, srcInfo := write("src", "packaged", old)
	same, sameInfo := write("same", "packaged", now)
	older, olderInfo := write("older", "stale!!", old.Add(-time.Hour))
	newer, newerInfo := write("newer", "edited", now)

	tests := []struct {
		name   string
		policy manifest.OverwritePolicy
		dst    string
		info   os.FileInfo
		want   bool
	}{
		{"identical content is kept", manifest.OverwriteSkipIfNewer, same, sameInfo, false},
		{"older destination is replaced", manifest.OverwriteSkipIfNewer, older, olderInfo, true},
		{"newer destination is kept", manifest.OverwriteSkipIfNewer, newer, newerInfo, false},
		{"always replaces newer", manifest.OverwriteAlways, newer, newerInfo, true},
		{"keep never replaces", manifest.OverwriteKeep, older, olderInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shouldReplace(tt.policy, src, tt.dst, srcInfo, tt.info)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("shouldReplace = %v, want %v", got, tt.want)
			}
		})
	}
}
