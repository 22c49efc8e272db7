package harness

import "errors"

var (
	// ErrArchive indicates the reference archive could not be read or extracted.
	ErrArchive = errors.New("harness: cannot handle reference archive")

	// ErrNoKATFolder indicates the extracted archive lacks submission_package_v2/KAT.
	ErrNoKATFolder = errors.New("harness: no KAT folder in reference archive")

	// ErrKATFilesMissing indicates kat_gen did not produce the request/response pair.
	ErrKATFilesMissing = errors.New("harness: KAT files missing after generation")

	// ErrKATCheck indicates kat_check did not report success.
	ErrKATCheck = errors.New("harness: KAT self-check failed")

	// ErrKATMismatch indicates the generated response differs from the reference.
	ErrKATMismatch = errors.New("harness: KAT differs from reference")
)
