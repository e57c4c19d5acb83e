// Package mediaerr defines the error kinds every transform and video
// operation reports, and the helpers the request boundaries use to map them
// onto HTTP statuses and CLI output.
package mediaerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidParams = errors.New("invalid params")
	ErrAssetNotFound = errors.New("asset not found")
	ErrLockTimeout   = errors.New("lock timeout")
	ErrBuildFailure  = errors.New("build failure")
	ErrStoreIO       = errors.New("store io error")
	ErrProvider      = errors.New("provider error")
)

var kinds = []error{
	ErrInvalidParams,
	ErrAssetNotFound,
	ErrLockTimeout,
	ErrBuildFailure,
	ErrStoreIO,
	ErrProvider,
}

// Error carries a kind plus the operation and detail that produced it.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

// New builds an *Error. cause may be nil.
func New(kind error, op, detail string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: cause}
}

// Wrap is New with the detail taken from the cause.
func Wrap(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text shown to clients: the detail when present,
// otherwise the full error string.
func (e *Error) Message() string {
	if e.Detail != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Detail, e.Err)
		}
		return e.Detail
	}
	return e.Error()
}

// KindOf returns the kind of err, or nil when err carries none of the known kinds.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrLockTimeout, ErrStoreIO:
		return true
	}
	return false
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrInvalidParams:
		return http.StatusBadRequest
	case ErrAssetNotFound:
		return http.StatusNotFound
	case ErrLockTimeout:
		return http.StatusServiceUnavailable
	case ErrProvider:
		return http.StatusBadGateway
	case ErrBuildFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for any error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// Label returns a metrics-safe name for the kind of err.
func Label(err error) string {
	switch KindOf(err) {
	case ErrInvalidParams:
		return "invalid_params"
	case ErrAssetNotFound:
		return "asset_not_found"
	case ErrLockTimeout:
		return "lock_timeout"
	case ErrBuildFailure:
		return "build_failure"
	case ErrStoreIO:
		return "store_io"
	case ErrProvider:
		return "provider"
	default:
		return "unknown"
	}
}
