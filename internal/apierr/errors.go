// Package apierr defines the single error shape returned by the session
// client for every failed exchange, and the classification that produces it.
//
// Every failure, whether it happened while building the request, on the
// wire, or on the remote server, becomes exactly one *Error. Callers check
// the failure class with errors.Is(err, apierr.ErrSessionExpired) etc., or
// with errors.As to read the message and original status.
package apierr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class.
var (
	// ErrSessionExpired indicates the backend rejected the stored credential (401).
	ErrSessionExpired = errors.New("session expired")

	// ErrForbidden indicates the credential lacks permission (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrServer indicates a backend failure (5xx).
	ErrServer = errors.New("server error")

	// ErrNetwork indicates no response was received (refused, reset, timeout).
	ErrNetwork = errors.New("network error")

	// ErrRequestSetup indicates the request could not be built or sent.
	ErrRequestSetup = errors.New("request setup failed")

	// ErrUnknown indicates any other failure, typically a 4xx validation error.
	ErrUnknown = errors.New("request failed")
)

// Class is the closed set of failure classes.
type Class int

const (
	ClassUnknown Class = iota
	ClassAuth
	ClassForbidden
	ClassNotFound
	ClassServer
	ClassNetwork
	ClassRequestSetup
)

// String returns the stable name of the class.
func (c Class) String() string {
	switch c {
	case ClassUnknown:
		return "unknown"
	case ClassAuth:
		return "client-auth"
	case ClassForbidden:
		return "client-forbidden"
	case ClassNotFound:
		return "client-not-found"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	case ClassRequestSetup:
		return "request-setup"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Sentinel returns the sentinel error matching the class.
func (c Class) Sentinel() error {
	switch c {
	case ClassAuth:
		return ErrSessionExpired
	case ClassForbidden:
		return ErrForbidden
	case ClassNotFound:
		return ErrNotFound
	case ClassServer:
		return ErrServer
	case ClassNetwork:
		return ErrNetwork
	case ClassRequestSetup:
		return ErrRequestSetup
	default:
		return ErrUnknown
	}
}

// Error is the normalized error returned for every failed exchange.
type Error struct {
	// Message is safe to show to the user as is.
	Message string
	Class   Class
	// Status is the HTTP status of the response, 0 when none was received.
	Status int
	// Cause is the transport-level error, if any.
	Cause error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the class sentinel and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Class.Sentinel()}
	}
	return []error{e.Class.Sentinel(), e.Cause}
}

// HasStatus reports whether a response status was received.
func (e *Error) HasStatus() bool {
	return e.Status != 0
}

// ClassOf returns the class of err, or ClassUnknown if err is not an *Error.
func ClassOf(err error) Class {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ClassUnknown
}
