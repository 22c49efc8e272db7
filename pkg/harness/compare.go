package harness

import (
	"errors"
	"fmt"
	"os"

	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// compareReference byte-compares the generated response with the reference
// archive's copy for s.
func compareReference(ref *Reference, s variant.Scheme, skSize int64, generated string) error {
	want := ref.ResponseFile(s, skSize)
	if !fileutil.Exists(want) {
		return fmt.Errorf("%w: %s: no reference file %s", ErrKATMismatch, s.Label(), want)
	}

	same, err := fileutil.SameContent(want, generated)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrKATMismatch, s.Label(), err)
		}
		return fmt.Errorf("compare %s: %w", generated, err)
	}
	if !same {
		return fmt.Errorf("%w: %s: %s differs from %s", ErrKATMismatch, s.Label(), generated, want)
	}
	return nil
}
