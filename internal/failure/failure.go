// Package failure defines the machine-checkable error kinds shared by every
// stage of an install or uninstall run. Each kind is a sentinel error; an
// *Error wraps a kind together with a message, the underlying cause, and any
// warnings collected while cleaning up, so callers can use errors.Is to branch
// on the kind and still print a human-readable report.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedManifest   = errors.New("malformed manifest")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrUnknownToken        = errors.New("unknown path token")
	ErrResourceBusy        = errors.New("resource busy")
	ErrInstallFailed       = errors.New("install failed")
	ErrUninstallFailed     = errors.New("uninstall failed")
	ErrNotFound            = errors.New("not found")
)

// Error is a classified failure.
type Error struct {
	Kind     error
	Msg      string
	Err      error
	Warnings []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns a classified error with a formatted message.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithWarnings returns a classified error that also carries cleanup warnings.
func WithWarnings(kind, err error, warnings []string, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err, Warnings: warnings}
}

// Warnings returns the warnings attached to the outermost *Error in err's chain.
func Warnings(err error) []string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Warnings
	}
	return nil
}

// Exit codes reported by the CLI.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalid      = 2
	ExitResourceBusy = 3
	ExitNotFound     = 4
)

// ExitCode maps an error to the process exit code. ResourceBusy takes
// precedence over InstallFailed since a busy install is retryable by the caller.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrResourceBusy):
		return ExitResourceBusy
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrMalformedManifest),
		errors.Is(err, ErrUnresolvedReference),
		errors.Is(err, ErrUnknownToken):
		return ExitInvalid
	default:
		return ExitFailure
	}
}
