package params

import "errors"

// ErrInvalidMacro indicates a profile macro that cannot be emitted.
var ErrInvalidMacro = errors.New("invalid profile macro")
