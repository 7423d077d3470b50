// Package repository holds the credential and event stores.  Sentinel
// errors defined here let the service layer tell failure modes apart
// without depending on a particular database driver.
package repository

import "errors"

// ErrNotFound is the parent of every "row does not exist" error.
var ErrNotFound = errors.New("not found")

// ErrUserNotFound and ErrEventNotFound wrap ErrNotFound so callers can
// match either the specific or the general case with errors.Is.
var (
	ErrUserNotFound  = notFound("user not found")
	ErrEventNotFound = notFound("event not found")
)

// ErrEmailExists is returned when a user with the same email is already stored.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyRegistered is returned when the (user, event) pair already exists.
var ErrAlreadyRegistered = errors.New("already registered")

// ErrEventFull is returned when the event's attendee count has reached capacity.
var ErrEventFull = errors.New("event is full")

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string        { return e.msg }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
