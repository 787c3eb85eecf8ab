package signaling

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentifier means the peer id already maps to a live connection.
	ErrDuplicateIdentifier = errors.New("peer identifier already registered")

	// ErrIdentifierInUse means the peer id is already a member of the room.
	ErrIdentifierInUse = errors.New("peer identifier already in use in room")

	// ErrInvalidRequest means a required identifier was missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")
)

// RequestError wraps a validation failure with the operation that rejected it.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(op string, err error) *RequestError {
	return &RequestError{Op: op, Err: err}
}
