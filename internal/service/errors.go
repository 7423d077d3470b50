package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a domain error.  The API layer maps each kind to one
// HTTP status.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a domain failure with a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches another *Error of the same kind.  A target with an empty
// message matches every error of its kind, so errors.Is(err, ErrConflict)
// holds for ErrEventFull.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind matchers.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

var (
	ErrEmailTaken          = &Error{KindConflict, "Email already registered"}
	ErrBadCredentials      = &Error{KindUnauthorized, "Incorrect email or password"}
	ErrInvalidToken        = &Error{KindUnauthorized, "Could not validate credentials"}
	ErrWrongRole           = &Error{KindForbidden, "Not enough permissions"}
	ErrEventNotFound       = &Error{KindNotFound, "Event not found"}
	ErrUserNotFound        = &Error{KindNotFound, "User not found"}
	ErrAlreadyRegistered   = &Error{KindConflict, "User already registered for this event"}
	ErrEventFull           = &Error{KindConflict, "Event is at full capacity"}
	ErrCapacityNotPositive = &Error{KindValidation, "capacity must be a positive integer"}
)

// KindOf returns the Kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Invalid builds a validation error with a formatted message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// fromValidator turns go-playground validation failures into one
// validation error listing every offending field.
func fromValidator(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fieldMessage(fe))
	}
	return Invalid("%s", strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + ": field required"
	case "email":
		return field + ": value is not a valid email address"
	case "gte", "min":
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s: must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", field, fe.Tag())
}
