package model

import (
	"errors"
	"fmt"
)

// ErrNoActiveBlock is returned when a comment dialog operation runs with no
// comment block attached. The dialog's transition guards should make this
// unreachable from normal UI flows.
var ErrNoActiveBlock = errors.New("no active comment block")

// ErrReadOnly is returned when an anonymous viewer tries to change a comment.
var ErrReadOnly = errors.New("comment dialog is read-only")

// ErrNotFound is returned when a page object (comment block, editor, reply
// section) is not registered with the session.
var ErrNotFound = errors.New("not found")

// ValidationError reports unmet publish preconditions. It is raised before any
// network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError reports a non-success outcome of a single server call.
type TransportError struct {
	Prefix  string // Call-site specific banner prefix.
	Status  int    // HTTP status, 0 when the request never got a response.
	Code    int    // Server error code from the JSON envelope, if any.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Prefix == "" {
		return msg
	}
	return e.Prefix + " " + msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
