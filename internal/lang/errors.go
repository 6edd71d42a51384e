package lang

import "errors"

// ErrInvalid indicates an unsupported language code was specified.
var ErrInvalid = errors.New("invalid language code")
