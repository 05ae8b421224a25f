package paths

import (
	"path"
	"strings"

	"github.com/stagehand-labs/stagehand/internal/failure"
)

// Token names a well-known root.
type Token string

const (
	TokenApp          Token = "app"
	TokenProgramFiles Token = "pf"
	TokenUserAppData  Token = "userappdata"
	TokenLocalAppData Token = "localappdata"
	TokenUserPrograms Token = "userprograms"
	TokenGroup        Token = "group"
	TokenUserDesktop  Token = "userdesktop"
	TokenTmp          Token = "tmp"
)

// Tokens contains every valid token.
var Tokens = []Token{
	TokenApp,
	TokenProgramFiles,
	TokenUserAppData,
	TokenLocalAppData,
	TokenUserPrograms,
	TokenGroup,
	TokenUserDesktop,
	TokenTmp,
}

// autopf is accepted as an alias of pf for manifests written for Inno-style tools.
const aliasAutoPF = "autopf"

func (t Token) valid() bool {
	for _, v := range Tokens {
		if v == t {
			return true
		}
	}
	return false
}

// String returns the token in its braced manifest form.
func (t Token) String() string { return "{" + string(t) + "}" }

// Symbolic is a parsed symbolic path: a token plus a clean slash-separated
// remainder that never leaves the token's root.
type Symbolic struct {
	Token Token
	Rel   string // "" means the root itself
}

// String renders s back to manifest form.
func (s Symbolic) String() string {
	if s.Rel == "" {
		return s.Token.String()
	}
	return s.Token.String() + "/" + s.Rel
}

// Join appends a slash-separated relative path to s.
func (s Symbolic) Join(rel string) Symbolic {
	joined := path.Join(s.Rel, rel)
	if joined == "." {
		joined = ""
	}
	return Symbolic{Token: s.Token, Rel: joined}
}

// Parse splits a symbolic path like `{app}\lib` into its token and remainder.
// Both separators are accepted. Paths without a leading token, with unknown
// tokens, or whose remainder escapes the root are rejected.
func Parse(s string) (Symbolic, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "{") {
		return Symbolic{}, failure.New(failure.ErrMalformedManifest, "path %q must start with a token such as {app}", s)
	}
	end := strings.IndexByte(raw, '}')
	if end < 0 {
		return Symbolic{}, failure.New(failure.ErrMalformedManifest, "path %q has an unterminated token", s)
	}

	name := strings.ToLower(raw[1:end])
	if name == aliasAutoPF {
		name = string(TokenProgramFiles)
	}
	tok := Token(name)
	if !tok.valid() {
		return Symbolic{}, failure.New(failure.ErrUnknownToken, "{%s} in %q", raw[1:end], s)
	}

	rest := strings.ReplaceAll(raw[end+1:], `\`, "/")
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return Symbolic{}, failure.New(failure.ErrMalformedManifest, "path %q: token must be followed by a separator", s)
	}
	rel, err := cleanRel(rest)
	if err != nil {
		return Symbolic{}, failure.New(failure.ErrMalformedManifest, "path %q: %s", s, err)
	}
	return Symbolic{Token: tok, Rel: rel}, nil
}

type relError string

func (e relError) Error() string { return string(e) }

// cleanRel normalizes a slash-separated remainder and rejects anything that
// would climb out of its root or smuggle in a drive letter.
func cleanRel(rest string) (string, error) {
	rel := path.Clean("/" + strings.TrimLeft(rest, "/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", nil
	}
	if strings.Contains(rest, "..") {
		for _, part := range strings.Split(rest, "/") {
			if part == ".." {
				return "", relError("parent directory references are not allowed")
			}
		}
	}
	if strings.ContainsRune(rel, ':') {
		return "", relError("drive or stream specifiers are not allowed")
	}
	return rel, nil
}
