// Package gcerrors classifies pipeline failures into the error-kind table
// the spec prescribes: each Kind carries its own local-recovery and
// surfacing policy so callers can decide, without re-deriving the table,
// whether a failure is fatal to the current command or merely worth a
// warning on the way to the next dependency.
package gcerrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories from the error handling
// design table.
type Kind int

const (
	LockfileMissing Kind = iota
	LockfileMalformed
	ManifestMalformed
	RefResolutionFailed
	CheckoutFailed
	InstallFailed
	PackFailed
	IntegrityFailed
	RegistryAuthMissing
	RegistryHttpError
	RegistryQuotaExceeded
	LocalIoError
	PruneScanError
	InvalidSize
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case LockfileMissing:
		return "LockfileMissing"
	case LockfileMalformed:
		return "LockfileMalformed"
	case ManifestMalformed:
		return "ManifestMalformed"
	case RefResolutionFailed:
		return "RefResolutionFailed"
	case CheckoutFailed:
		return "CheckoutFailed"
	case InstallFailed:
		return "InstallFailed"
	case PackFailed:
		return "PackFailed"
	case IntegrityFailed:
		return "IntegrityFailed"
	case RegistryAuthMissing:
		return "RegistryAuthMissing"
	case RegistryHttpError:
		return "RegistryHttpError"
	case RegistryQuotaExceeded:
		return "RegistryQuotaExceeded"
	case LocalIoError:
		return "LocalIoError"
	case PruneScanError:
		return "PruneScanError"
	case InvalidSize:
		return "InvalidSize"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// fatalKinds are the kinds that must stop processing of the command (or,
// for LockfileMissing/LockfileMalformed, the whole run) rather than being
// collected as a per-dependency warning.
var fatalKinds = map[Kind]bool{
	LockfileMissing:   true,
	LockfileMalformed: true,
	IntegrityFailed:   true,
	Cancelled:         true,
}

// Error is a typed pipeline error carrying a Kind, an operation label, and
// the wrapped underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error's Kind must stop the current command
// (LockfileMissing, LockfileMalformed, IntegrityFailed, Cancelled) as
// opposed to being collected and surfaced as a per-dependency warning.
func (e *Error) Fatal() bool {
	return fatalKinds[e.Kind]
}

// New wraps err under the given Kind and operation label.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err is a *Error whose Kind is fatal to the
// current command. A nil error, or an error of unknown kind, is never
// fatal by this predicate (untyped errors are treated as warnings, the
// conservative choice for bulk per-dependency operations).
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return false
}
