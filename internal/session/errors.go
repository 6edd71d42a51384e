package session

import "errors"

var (
	// ErrInvalidConfig indicates the connection configuration is unusable.
	ErrInvalidConfig = errors.New("invalid session configuration")

	// ErrUnsupportedBody indicates a body that cannot be encoded for the
	// requested content type.
	ErrUnsupportedBody = errors.New("unsupported request body")

	// ErrForeignURL indicates an absolute request URL outside the base
	// address. The bearer token is never sent to another origin.
	ErrForeignURL = errors.New("request URL outside the API base address")

	// ErrResponseTooLarge indicates a response body above the read limit.
	ErrResponseTooLarge = errors.New("response body too large")
)
