package variant

import "errors"

var (
	// ErrInvalidToken indicates a filter token that names no subset of the matrix.
	ErrInvalidToken = errors.New("invalid scheme filter")
	// ErrUnknownScheme indicates a label that matches no concrete scheme.
	ErrUnknownScheme = errors.New("unknown scheme")
	// ErrInvalidAxis indicates an axis value outside its legal set.
	ErrInvalidAxis = errors.New("invalid axis value")
)
