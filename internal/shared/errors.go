package shared

import "errors"

// Error kinds. Domain packages wrap one of these with %w so transports can
// classify failures with errors.Is.
var (
	// ErrNotFound indicates resource not found, or not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the caller lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or anonymous session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates the resource is not in a state that allows the operation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewError returns a sentinel with message msg that matches kind under errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}
