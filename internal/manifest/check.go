package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/paths"
)

// issueList accumulates semantic problems so a single load reports all of them.
type issueList struct {
	malformed  []string
	tokens     []string
	unresolved []string
}

func (l *issueList) bad(format string, args ...interface{}) {
	l.malformed = append(l.malformed, fmt.Sprintf(format, args...))
}

func (l *issueList) dangling(format string, args ...interface{}) {
	l.unresolved = append(l.unresolved, fmt.Sprintf(format, args...))
}

// pathErr files a symbolic path error under its own kind.
func (l *issueList) pathErr(where, field string, err error) {
	var fe *failure.Error
	msg := err.Error()
	if errors.As(err, &fe) {
		msg = fe.Msg
	}
	if errors.Is(err, failure.ErrUnknownToken) {
		l.tokens = append(l.tokens, fmt.Sprintf("%s: %s: unknown token %s", where, field, msg))
		return
	}
	l.bad("%s: %s: %s", where, field, msg)
}

func (l *issueList) err() error {
	all := append(append(append([]string{}, l.malformed...), l.tokens...), l.unresolved...)
	switch {
	case len(l.malformed) > 0:
		return failure.New(failure.ErrMalformedManifest, "%s", strings.Join(all, "; "))
	case len(l.tokens) > 0:
		return failure.New(failure.ErrUnknownToken, "%s", strings.Join(all, "; "))
	case len(l.unresolved) > 0:
		return failure.New(failure.ErrUnresolvedReference, "%s", strings.Join(l.unresolved, "; "))
	default:
		return nil
	}
}

// Check validates the cross-field rules the schema cannot express: version
// syntax, unique task ids and shortcut keys, symbolic path syntax, and that
// every task gate and every {app} target points at something the manifest
// declares.
func Check(m *Manifest) error {
	var issues issueList

	checkApp(m.App, &issues)

	installed := make([]installedDest, 0, len(m.Files))
	for i, f := range m.Files {
		if d, ok := checkFile(i, f, &issues); ok {
			installed = append(installed, d)
		}
	}

	taskIDs := make(map[string]bool, len(m.Tasks))
	for i, t := range m.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			issues.bad("tasks[%d]: id is required", i)
			continue
		}
		if strings.ContainsAny(id, ", ") {
			issues.bad("tasks[%d]: id %q must not contain commas or spaces", i, id)
		}
		if taskIDs[id] {
			issues.bad("tasks[%d]: duplicate task id %q", i, id)
		}
		taskIDs[id] = true
	}

	shortcutKeys := make(map[string]bool, len(m.Shortcuts))
	for i, s := range m.Shortcuts {
		checkShortcut(i, s, taskIDs, installed, shortcutKeys, &issues)
	}

	for i, r := range m.Run {
		where := fmt.Sprintf("run[%d]", i)
		if r.Task != "" && !taskIDs[r.Task] {
			issues.dangling("%s: task %q is not declared", where, r.Task)
		}
		checkTarget(where, "target", r.Target, installed, &issues)
	}

	return issues.err()
}

func checkApp(a AppMetadata, issues *issueList) {
	if strings.TrimSpace(a.ID) == "" {
		issues.bad("app.id is required")
	} else if strings.ContainsAny(a.ID, "\x00\r\n") {
		issues.bad("app.id contains control characters")
	}
	if strings.TrimSpace(a.Name) == "" {
		issues.bad("app.name is required")
	}
	if _, err := semver.NewVersion(strings.TrimPrefix(a.Version, "v")); err != nil {
		issues.bad("app.version %q is not a semantic version: %v", a.Version, err)
	}
	if a.DefaultDir != "" {
		s, err := paths.Parse(a.DefaultDir)
		if err != nil {
			issues.pathErr("app", "default_dir", err)
		} else if s.Token == paths.TokenApp || s.Token == paths.TokenGroup {
			issues.bad("app.default_dir cannot be relative to %s", s.Token)
		}
	}
	if g := a.GroupName(); strings.ContainsAny(g, `/\:`) {
		issues.bad("app.group %q must be a single directory name", g)
	}
}

// installedDest describes where a file entry lands, for target coverage checks.
type installedDest struct {
	dir     paths.Symbolic
	file    string
	expands bool
}

func (d installedDest) covers(s paths.Symbolic) bool {
	if s.Token != d.dir.Token {
		return false
	}
	if d.expands {
		return s.Rel == d.dir.Rel || d.dir.Rel == "" || strings.HasPrefix(s.Rel, d.dir.Rel+"/")
	}
	return s.Rel == d.dir.Join(d.file).Rel
}

func checkFile(i int, f FileEntry, issues *issueList) (installedDest, bool) {
	where := fmt.Sprintf("files[%d]", i)
	src := strings.ReplaceAll(strings.TrimSpace(f.Source), `\`, "/")
	if src == "" {
		issues.bad("%s: source is required", where)
		return installedDest{}, false
	}
	if path.IsAbs(src) || strings.Contains(src, ":") {
		issues.bad("%s: source %q must be relative to the build output", where, f.Source)
	}
	for _, part := range strings.Split(src, "/") {
		if part == ".." {
			issues.bad("%s: source %q must not leave the build output", where, f.Source)
			break
		}
	}

	switch f.Policy() {
	case OverwriteSkipIfNewer, OverwriteAlways, OverwriteKeep:
	default:
		issues.bad("%s: unknown overwrite policy %q", where, f.Overwrite)
	}

	dir, err := paths.Parse(f.Dest)
	if err != nil {
		issues.pathErr(where, "dest", err)
		return installedDest{}, false
	}

	expands := f.Recurse || strings.ContainsAny(path.Base(src), "*?[")
	if f.DestName != "" {
		if expands {
			issues.bad("%s: dest_name cannot be used with wildcards or recurse", where)
		}
		if strings.ContainsAny(f.DestName, `/\:`) || f.DestName == "." || f.DestName == ".." {
			issues.bad("%s: dest_name %q must be a plain file name", where, f.DestName)
		}
	}

	name := f.DestName
	if name == "" {
		name = path.Base(src)
	}
	return installedDest{dir: dir, file: name, expands: expands}, true
}

func checkShortcut(i int, s ShortcutEntry, tasks map[string]bool, installed []installedDest, seen map[string]bool, issues *issueList) {
	where := fmt.Sprintf("shortcuts[%d]", i)
	name := strings.TrimSpace(s.Name)
	if name == "" {
		issues.bad("%s: name is required", where)
	} else if strings.ContainsAny(name, `/\:*?"<>|`) {
		issues.bad("%s: name %q contains characters not allowed in file names", where, s.Name)
	}

	switch s.Where() {
	case LocationGroup, LocationDesktop:
	default:
		issues.bad("%s: unknown location %q", where, s.Location)
	}

	key := string(s.Where()) + "|" + strings.ToLower(name)
	if seen[key] {
		issues.bad("%s: duplicate shortcut %q in %s", where, s.Name, s.Where())
	}
	seen[key] = true

	if s.Task != "" && !tasks[s.Task] {
		issues.dangling("%s: task %q is not declared", where, s.Task)
	}

	checkTarget(where, "target", s.Target, installed, issues)
	if s.Icon != "" {
		checkTarget(where, "icon", s.Icon, installed, issues)
	}
	if s.WorkingDir != "" {
		if _, err := paths.Parse(s.WorkingDir); err != nil {
			issues.pathErr(where, "working_dir", err)
		}
	}
}

// checkTarget verifies a symbolic path and, for paths under {app}, that a
// file entry installs it.
func checkTarget(where, field, target string, installed []installedDest, issues *issueList) {
	s, err := paths.Parse(target)
	if err != nil {
		issues.pathErr(where, field, err)
		return
	}
	if s.Token != paths.TokenApp {
		return
	}
	for _, d := range installed {
		if d.covers(s) {
			return
		}
	}
	issues.dangling("%s: %s %q is not installed by any file entry", where, field, target)
}
