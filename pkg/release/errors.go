package release

import "errors"

var (
	// ErrMissingSource indicates a manifest or parameter file is absent from the source tree.
	ErrMissingSource = errors.New("release: missing source file")

	// ErrNameCollision indicates two manifest paths flatten to the same file name.
	ErrNameCollision = errors.New("release: flattened name collision")

	// ErrPatchMarker indicates the umbrella header lacks the include-guard define.
	ErrPatchMarker = errors.New("release: umbrella header has no generic include guard")

	// ErrUnknownLinkMode indicates an unrecognized link mode string.
	ErrUnknownLinkMode = errors.New("release: unknown link mode")

	// ErrVerify indicates a materialized tree does not satisfy the dedup invariants.
	ErrVerify = errors.New("release: verification failed")
)
