package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/paths"
	"github.com/stagehand-labs/stagehand/internal/platform"
	"github.com/stagehand-labs/stagehand/internal/receipt"
)

// Action is one planned side effect. Which fields are set depends on Kind.
type Action struct {
	Kind receipt.Kind
	Path string

	// copy-file
	Source string
	Policy manifest.OverwritePolicy

	// create-shortcut
	Shortcut platform.Shortcut
}

func (a Action) String() string {
	return string(a.Kind) + " " + a.Path
}

// Plan expands the run's manifest into concrete actions, in manifest order:
// directories ahead of the files placed in them, file copies, shortcuts for
// enabled entries, and finally writing the record to recordPath.
func Plan(r *Run, recordPath string) ([]Action, error) {
	if r.Resolver == nil {
		return nil, fmt.Errorf("run %s has no resolved install root", r.ID)
	}
	p := &planner{run: r, dirs: make(map[string]bool)}

	p.mkdir(r.InstallRoot)

	for i, f := range r.Manifest.Files {
		if err := p.files(i, f); err != nil {
			return nil, err
		}
	}
	for i, s := range r.Manifest.Shortcuts {
		if !r.Selection.Enabled(s.Task) {
			r.Logger.Debug("skipping gated shortcut", "shortcut", s.Name, "task", s.Task)
			continue
		}
		if err := p.shortcut(i, s); err != nil {
			return nil, err
		}
	}

	p.actions = append(p.actions, Action{Kind: receipt.KindWriteRecord, Path: recordPath})
	return p.actions, nil
}

type planner struct {
	run     *Run
	dirs    map[string]bool
	actions []Action
}

// mkdir plans dir and every missing ancestor, outermost first. Existing
// ancestors above the first missing one are not planned.
func (p *planner) mkdir(dir string) {
	var chain []string
	for d := filepath.Clean(dir); !p.dirs[d]; {
		chain = append(chain, d)
		parent := filepath.Dir(d)
		if parent == d || isDir(parent) {
			break
		}
		d = parent
	}
	for i := len(chain) - 1; i >= 0; i-- {
		p.dirs[chain[i]] = true
		p.actions = append(p.actions, Action{Kind: receipt.KindMkdir, Path: chain[i]})
	}
}

func (p *planner) files(i int, f manifest.FileEntry) error {
	dest, err := p.run.Resolver.Resolve(f.Dest)
	if err != nil {
		return err
	}
	sources, err := expandSource(p.run.BuildDir, f)
	if err != nil {
		return fmt.Errorf("files[%d]: %w", i, err)
	}
	for _, src := range sources {
		dst := filepath.Join(dest, filepath.FromSlash(src.rel))
		p.mkdir(filepath.Dir(dst))
		p.actions = append(p.actions, Action{
			Kind:   receipt.KindCopyFile,
			Path:   dst,
			Source: src.abs,
			Policy: f.Policy(),
		})
	}
	return nil
}

func (p *planner) shortcut(i int, s manifest.ShortcutEntry) error {
	r := p.run.Resolver
	tok := paths.TokenGroup
	if s.Where() == manifest.LocationDesktop {
		tok = paths.TokenUserDesktop
	}
	dir, err := r.Root(tok)
	if err != nil {
		return err
	}
	target, err := r.Resolve(s.Target)
	if err != nil {
		return err
	}
	sc := platform.Shortcut{
		Name:       s.Name,
		Dir:        dir,
		Target:     target,
		WorkingDir: filepath.Dir(target),
		Comment:    p.run.Manifest.App.Name,
	}
	if s.Icon != "" {
		if sc.Icon, err = r.Resolve(s.Icon); err != nil {
			return err
		}
	}
	if s.WorkingDir != "" {
		if sc.WorkingDir, err = r.Resolve(s.WorkingDir); err != nil {
			return err
		}
	}
	if s.Parameters != "" {
		if sc.Args, err = shellquote.Split(s.Parameters); err != nil {
			return failure.Wrap(failure.ErrMalformedManifest, err, "shortcuts[%d]: parameters", i)
		}
	}

	p.mkdir(dir)
	p.actions = append(p.actions, Action{Kind: receipt.KindShortcut, Path: sc.Path(), Shortcut: sc})
	return nil
}

type sourceFile struct {
	abs string
	rel string // slash separated, relative to the destination directory
}

// expandSource lists the build output files a file entry names. A wildcard
// base name matches files in the source directory, and with recurse in all
// of its subdirectories too, keeping their relative layout. A directory
// source copies its contents and requires recurse.
func expandSource(buildDir string, f manifest.FileEntry) ([]sourceFile, error) {
	src := filepath.FromSlash(strings.ReplaceAll(strings.TrimSpace(f.Source), `\`, "/"))
	full := filepath.Join(buildDir, src)
	dir, pattern := filepath.Dir(full), filepath.Base(full)

	info, err := os.Stat(full)
	switch {
	case err == nil && info.IsDir():
		if !f.Recurse {
			return nil, failure.New(failure.ErrMalformedManifest, "source %q is a directory; set recurse to copy it", f.Source)
		}
		dir, pattern = full, "*"
	case err == nil && !f.Recurse:
		name := f.DestName
		if name == "" {
			name = pattern
		}
		return []sourceFile{{abs: full, rel: name}}, nil
	case err != nil && !hasMeta(pattern):
		return nil, failure.New(failure.ErrUnresolvedReference, "source %q not found in %s", f.Source, buildDir)
	}

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, failure.Wrap(failure.ErrMalformedManifest, err, "source %q", f.Source)
	}

	var out []sourceFile
	add := func(p string) error {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, sourceFile{abs: p, rel: filepath.ToSlash(rel)})
		return nil
	}

	if f.Recurse {
		err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				return add(p)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(dir)
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if ok, _ := filepath.Match(pattern, e.Name()); ok {
				if err = add(filepath.Join(dir, e.Name())); err != nil {
					break
				}
			}
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.Wrap(failure.ErrUnresolvedReference, err, "source %q", f.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	if len(out) == 0 {
		return nil, failure.New(failure.ErrUnresolvedReference, "source %q matched no files in %s", f.Source, buildDir)
	}
	return out, nil
}

func hasMeta(name string) bool {
	return strings.ContainsAny(name, "*?[")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
