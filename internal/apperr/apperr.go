// Package apperr carries the error kinds the API maps to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers. The zero value is KindInternal.
type Kind string

const (
	KindInternal         Kind = "Internal"
	KindMalformedInput   Kind = "MalformedInput"
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindUnauthorized     Kind = "Unauthorized"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
)

// Error is a classified application error. Code is a stable machine-readable
// identifier (e.g. "MISSING_COLUMNS"), Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns e after merging the given details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func Malformed(code, format string, args ...any) *Error {
	return &Error{Kind: KindMalformedInput, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a storage or provider failure.
func Unavailable(code string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Code: code, Message: "backing service unavailable", Err: err}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func NotFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
