// Package apperr is the error taxonomy shared by the allocation and billing
// services and translated into HTTP responses by the handlers.  Kinds are
// sentinel values so callers can use errors.Is; Error adds the offending
// field and a caller-safe message.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input.  Not retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced room, student or record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAllocated is returned when a student already holds a room.
	ErrAlreadyAllocated = errors.New("student already allocated")
	// ErrRoomFull is returned when a room has no free bed left.
	ErrRoomFull = errors.New("room full")
	// ErrConflict covers other uniqueness conflicts (duplicate billing month, existing user).
	ErrConflict = errors.New("conflict")
	// ErrPersistence wraps database and transaction failures.  The wrapped
	// detail is for logs only and must not reach clients.
	ErrPersistence = errors.New("persistence failure")
)

// Error carries a kind plus context.  Message is safe to show to callers;
// Err holds the underlying cause, if any.
type Error struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is lets errors.Is match on the kind as well as on the wrapped cause.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a missing or malformed field.
func Validation(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// NotFound reports an absent entity, e.g. NotFound("room").
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// Conflict reports a uniqueness conflict with a caller-safe message.
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Persistence wraps a collaborator failure; op names the operation for logs.
// Errors that already carry a kind pass through unchanged so business
// errors raised inside a transaction keep their meaning.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	for _, k := range []error{ErrValidation, ErrNotFound, ErrAlreadyAllocated, ErrRoomFull, ErrConflict, ErrPersistence} {
		if errors.Is(err, k) {
			return err
		}
	}
	return &Error{Kind: ErrPersistence, Message: op + " failed", Err: err}
}

// PublicMessage returns the message a client may see for err.  Persistence
// failures and unknown errors collapse to a generic text.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && !errors.Is(err, ErrPersistence) {
		if ae.Message != "" {
			return ae.Message
		}
		return ae.Kind.Error()
	}
	switch {
	case errors.Is(err, ErrAlreadyAllocated):
		return "Student already allocated. Vacate first."
	case errors.Is(err, ErrRoomFull):
		return "Room full"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrValidation):
		return "invalid input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "Server error"
}

// AlreadyAllocated reports that the student must vacate before a new
// allocation.
func AlreadyAllocated() error {
	return &Error{Kind: ErrAlreadyAllocated, Field: "roll_no", Message: "Student already allocated. Vacate first."}
}

// RoomFull reports that a room has no free bed.
func RoomFull() error {
	return &Error{Kind: ErrRoomFull, Field: "room_id", Message: "Room full"}
}
