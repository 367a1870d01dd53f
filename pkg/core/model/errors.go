package model

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindState      Kind = "state"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
)

// Error is returned by core operations. All kinds are per-request and recoverable by the caller.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Ref     string // conflicting or missing entity id, if any
}

func (e *Error) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s (ref %s)", e.Op, e.Message, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func newError(kind Kind, op, ref, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Ref: ref}
}

func Validationf(op, format string, args ...any) *Error {
	return newError(KindValidation, op, "", format, args...)
}

func Conflictf(op, ref, format string, args ...any) *Error {
	return newError(KindConflict, op, ref, format, args...)
}

func Statef(op, format string, args ...any) *Error {
	return newError(KindState, op, "", format, args...)
}

func NotFound(op, entity, id string) *Error {
	return newError(KindNotFound, op, id, "%s not found", entity)
}

func Forbiddenf(op, format string, args ...any) *Error {
	return newError(KindForbidden, op, "", format, args...)
}

// KindOf returns the kind of a domain error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
