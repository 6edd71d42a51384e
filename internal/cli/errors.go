package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidPair indicates a --header or --query value not in key=value form.
	ErrInvalidPair = errors.New("expected key=value")

	// ErrInvalidData indicates a --data payload that is not valid JSON.
	ErrInvalidData = errors.New("request data is not valid JSON")

	// ErrUsernameMissing indicates no username was given by flag or environment.
	ErrUsernameMissing = errors.New("username required: use --username or EVENTADMIN_USERNAME")

	// ErrPasswordMissing indicates no password was given on stdin or in the environment.
	ErrPasswordMissing = errors.New("password required: use --password-stdin or EVENTADMIN_PASSWORD")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")
)
