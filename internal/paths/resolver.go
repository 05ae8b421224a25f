package paths

import (
	"path/filepath"
	"strings"

	"github.com/stagehand-labs/stagehand/internal/failure"
)

// Resolver maps symbolic paths to absolute ones. It is safe to copy and
// holds no reference to process state.
type Resolver struct {
	roots map[Token]string
}

// NewResolver builds a resolver bound to well-known roots only; {app} and
// {group} stay unbound until Bind is called.
func NewResolver(env Environment) *Resolver {
	roots := env.wellKnownRoots()
	for t, p := range roots {
		roots[t] = filepath.Clean(p)
	}
	return &Resolver{roots: roots}
}

// Bind returns a copy of r with {app} set to installRoot and {group} set to
// the start-menu group directory named group.
func (r *Resolver) Bind(installRoot, group string) (*Resolver, error) {
	if installRoot == "" || !filepath.IsAbs(installRoot) {
		return nil, failure.New(failure.ErrMalformedManifest, "install root %q must be an absolute path", installRoot)
	}
	group = strings.TrimSpace(group)
	if group == "" || strings.ContainsAny(group, `/\:`) || group == "." || group == ".." {
		return nil, failure.New(failure.ErrMalformedManifest, "start-menu group %q must be a single directory name", group)
	}

	roots := make(map[Token]string, len(r.roots)+2)
	for t, p := range r.roots {
		roots[t] = p
	}
	roots[TokenApp] = filepath.Clean(installRoot)
	roots[TokenGroup] = filepath.Join(roots[TokenUserPrograms], group)
	return &Resolver{roots: roots}, nil
}

// Root returns the absolute root for t.
func (r *Resolver) Root(t Token) (string, error) {
	p, ok := r.roots[t]
	if !ok {
		return "", failure.New(failure.ErrUnknownToken, "%s is not bound for this run", t)
	}
	return p, nil
}

// ResolveSymbolic returns the absolute path for a parsed symbolic path.
func (r *Resolver) ResolveSymbolic(s Symbolic) (string, error) {
	root, err := r.Root(s.Token)
	if err != nil {
		return "", err
	}
	if s.Rel == "" {
		return root, nil
	}
	return filepath.Join(root, filepath.FromSlash(s.Rel)), nil
}

// Resolve parses and resolves a manifest path such as `{app}\lib`.
func (r *Resolver) Resolve(symbolic string) (string, error) {
	s, err := Parse(symbolic)
	if err != nil {
		return "", err
	}
	return r.ResolveSymbolic(s)
}

// Boundaries returns the resolved roots that directory cleanup must never
// remove or climb above. {app} and {group} are excluded since an uninstall
// is expected to remove them once they are empty.
func (r *Resolver) Boundaries() []string {
	var out []string
	for t, p := range r.roots {
		if t == TokenApp || t == TokenGroup {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Within reports whether target lies inside (or equals) root.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
