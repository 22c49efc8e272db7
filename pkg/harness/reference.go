package harness

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/s3fetch"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// referenceKATPath is the KAT directory inside an extracted submission archive.
var referenceKATPath = filepath.Join("submission_package_v2", "KAT")

// Fetcher downloads a remote archive into destDir and returns its local path.
// *s3fetch.Client implements it.
type Fetcher interface {
	FetchURI(ctx context.Context, uri, destDir string) (string, error)
}

// Reference is an extracted reference KAT archive. It owns a temporary
// directory that Close removes.
type Reference struct {
	tmp    string
	katDir string
	source string

	closeOnce sync.Once
	closeErr  error
}

// OpenReference extracts the archive at src, a local ZIP path or an s3://
// URI fetched through fetch, and locates its KAT directory.
func OpenReference(ctx context.Context, src string, fetch Fetcher) (*Reference, error) {
	tmp, err := os.MkdirTemp("", "mqom2-kat-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	ref := &Reference{tmp: tmp, source: src}
	if err := ref.open(ctx, fetch); err != nil {
		ref.Close()
		return nil, err
	}

	log := logctx.FromContext(ctx)
	log.Info().
		Str("archive", src).
		Str("kat_dir", ref.katDir).
		Msg("KAT folder found in reference archive")
	return ref, nil
}

func (r *Reference) open(ctx context.Context, fetch Fetcher) error {
	src, tmp := r.source, r.tmp

	archive := src
	if s3fetch.IsS3URI(src) {
		if fetch == nil {
			return fmt.Errorf("%w %s: no S3 client", ErrArchive, src)
		}
		var err error
		archive, err = fetch.FetchURI(ctx, src, filepath.Join(tmp, "download"))
		if err != nil {
			return fmt.Errorf("%w %s: %v", ErrArchive, src, err)
		}
	}

	extracted := filepath.Join(tmp, "extract")
	if err := extractZip(archive, extracted); err != nil {
		return fmt.Errorf("%w %s: %v", ErrArchive, src, err)
	}

	r.katDir = filepath.Join(extracted, referenceKATPath)
	if info, err := os.Stat(r.katDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w %s", ErrNoKATFolder, src)
	}
	return nil
}

// KATDir returns the extracted KAT directory.
func (r *Reference) KATDir() string {
	return r.katDir
}

// ResponseFile returns the reference response path for s.
func (r *Reference) ResponseFile(s variant.Scheme, skSize int64) string {
	return filepath.Join(r.katDir, "mqom2_"+s.Label(), ResponseName(skSize))
}

// Close removes the extraction directory. Repeated calls are no-ops.
func (r *Reference) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = fileutil.RemoveAll(r.tmp)
	})
	return r.closeErr
}

func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("entry %q escapes extraction dir", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
