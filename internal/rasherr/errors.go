// Package rasherr defines the stable error taxonomy shared by every
// component of the engine. Each Kind corresponds to one row of the engine's
// exit-code table; components never invent ad-hoc error kinds, they wrap one
// of these sentinels with phase/path context.
package rasherr

import (
	"errors"
	"fmt"
)

// Kind is a stable error-kind tag. Callers that need to distinguish error
// categories (for exit-code selection, or for ignore_errors/rescue routing)
// switch on Kind rather than matching error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindCliInvalid
	KindScriptSyntax
	KindDocoptMalformed
	KindDocoptNoMatch
	KindDocoptAmbiguous
	KindTemplateUndefined
	KindTemplateError
	KindModuleNotFound
	KindParamInvalid
	KindModuleFailed
	KindBecomeFailed
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindCliInvalid:
		return "CliInvalid"
	case KindScriptSyntax:
		return "ScriptSyntax"
	case KindDocoptMalformed:
		return "DocoptMalformed"
	case KindDocoptNoMatch:
		return "DocoptNoMatch"
	case KindDocoptAmbiguous:
		return "DocoptAmbiguous"
	case KindTemplateUndefined:
		return "TemplateUndefined"
	case KindTemplateError:
		return "TemplateError"
	case KindModuleNotFound:
		return "ModuleNotFound"
	case KindParamInvalid:
		return "ParamInvalid"
	case KindModuleFailed:
		return "ModuleFailed"
	case KindBecomeFailed:
		return "BecomeFailed"
	case KindAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ExitCode implements the exit-code table of spec §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindCliInvalid, KindScriptSyntax:
		return 2
	case KindDocoptNoMatch, KindDocoptAmbiguous, KindDocoptMalformed:
		return 3
	case KindUnknown:
		return 1
	default:
		return 1
	}
}

// Error wraps an underlying cause with a stable Kind plus phase/path
// breadcrumbs, following the "phase=%s path=%s" convention used throughout
// this engine's validation and expansion passes.
type Error struct {
	Kind  Kind
	Phase string
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Phase == "" && e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Path == "" {
		return fmt.Sprintf("phase=%s: %s: %v", e.Phase, e.Kind, e.Err)
	}
	return fmt.Sprintf("phase=%s path=%s: %s: %v", e.Phase, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error for kind, wrapping err with phase/path context.
func New(kind Kind, phase, path string, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Path: path, Err: err}
}

// Wrap is New except it takes a format string for the underlying cause,
// mirroring fmt.Errorf's ergonomics.
func Wrap(kind Kind, phase, path, format string, args ...any) *Error {
	return New(kind, phase, path, fmt.Errorf(format, args...))
}

// KindOf extracts the Kind of err, walking the unwrap chain. Returns
// KindUnknown if err does not wrap a *rasherr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinel causes used with errors.Is/errors.As throughout the engine,
// following the sentinel-error convention the teacher uses in its own
// three-phase pipeline (ErrTypeAlreadyExists, ErrCycleDetected, ...),
// generalized to the five-phase rash pipeline.
var (
	ErrDuplicateModuleKey = errors.New("task must declare exactly one module or structural key")
	ErrMissingName        = errors.New("node is missing a name")
	ErrIncludeCycle       = errors.New("include cycle detected")
	ErrModuleNotFound     = errors.New("no module registered with this name")
	ErrUndefinedVariable  = errors.New("undefined variable")
	ErrOmitInScalar       = errors.New("omit sentinel used outside of parameter mapping context")
	ErrDocoptNoMatch      = errors.New("argv does not match any usage pattern")
	ErrDocoptAmbiguous    = errors.New("argv matches more than one usage pattern with equal score")
	ErrRenderLoopBound    = errors.New("template re-render did not converge within bound")
)
