package domain

import "errors"

// Kinds. Every concrete error below matches exactly one of them via errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrPersistence = errors.New("persistence error")
)

var (
	ErrUsernameEmpty    = newError(ErrValidation, "username empty")
	ErrUsernameTooLong  = newError(ErrValidation, "username too long")
	ErrMissingFields    = newError(ErrValidation, "All the fields are required!")
	ErrNotMember        = newError(ErrValidation, "You are not in this room!")
	ErrAttemptNotActive = newError(ErrValidation, "Quiz attempt is not active!")
	ErrInvalidWindow    = newError(ErrValidation, "Quiz end date must be after its start date!")
	ErrInvalidQuestion  = newError(ErrValidation, "Every question needs a unique id and an answer among its options!")
	ErrNotRegistered    = newError(ErrValidation, "Register before sending events!")
	ErrFileTooLarge     = newError(ErrValidation, "File is too large!")

	ErrUserNotFound     = newError(ErrNotFound, "User not found!")
	ErrRoomNotFound     = newError(ErrNotFound, "Room not found!")
	ErrHostOffline      = newError(ErrNotFound, "Room host is offline!")
	ErrQuizNotFound     = newError(ErrNotFound, "Quiz not found!")
	ErrQuestionNotFound = newError(ErrNotFound, "Question not found!")
	ErrAttemptNotFound  = newError(ErrNotFound, "Quiz attempt not found!")
	ErrTransferNotFound = newError(ErrNotFound, "File transfer not found!")

	ErrNotHost = newError(ErrForbidden, "Only host can close the room!")
)

// Error is a client-facing error: Error() is sent verbatim to the requester.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Validation wraps a boundary validation failure into an ErrValidation.
func Validation(msg string) error {
	return newError(ErrValidation, msg)
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Is(target error) bool { return target == e.kind }

// Public reports whether err should be surfaced to the requester.
func Public(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden)
}
