// internal/pkg/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientStock Kind = "insufficient_stock"
	KindDuplicateCode     Kind = "duplicate_code"
	KindInvalidTransition Kind = "invalid_transition"
	KindCodeInUse         Kind = "code_in_use"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// Sentinels for errors.Is checks. A typed *Error matches the sentinel of its Kind.
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrDuplicateCode     = &Error{Kind: KindDuplicateCode, Message: "duplicate activation code"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrCodeInUse         = &Error{Kind: KindCodeInUse, Message: "activation code in use"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is a typed domain error carrying the failing operation
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...any) *Error {
	return newError(KindValidation, op, format, args...)
}

func InsufficientStock(op, format string, args ...any) *Error {
	return newError(KindInsufficientStock, op, format, args...)
}

func DuplicateCode(op, format string, args ...any) *Error {
	return newError(KindDuplicateCode, op, format, args...)
}

func InvalidTransition(op, format string, args ...any) *Error {
	return newError(KindInvalidTransition, op, format, args...)
}

func CodeInUse(op, format string, args ...any) *Error {
	return newError(KindCodeInUse, op, format, args...)
}

func NotFound(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, format, args...)
}

// Internal wraps an infrastructure failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
