package report

import "errors"

var (
	// ErrNoMatch indicates that no report line matched a pattern.
	ErrNoMatch = errors.New("no line matches pattern")
	// ErrType indicates a matched value that has the wrong type for its field.
	ErrType = errors.New("unexpected value type")
)
