package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/params"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// Verify checks a materialized tree against its index: the index names
// exactly the shared files of the manifest, every instance resolves each
// shared file to content identical to the canonical copy and holds nothing
// else, symlink trees hold exactly one physical instance, and every
// parameters.h selects its own variant.
func Verify(ctx context.Context, out string) error {
	log := logctx.FromContext(ctx)

	idx, err := ReadIndex(out)
	if err != nil {
		return err
	}
	mode, err := ParseLinkMode(idx.LinkMode)
	if err != nil {
		return err
	}

	table, err := NewFileTable(InstanceDir(out, variant.Canonical), sharedNames())
	if err != nil {
		return fmt.Errorf("%w: canonical instance: %v", ErrVerify, err)
	}
	if err := checkIndexFiles(table, idx.Files); err != nil {
		return err
	}

	physical := 0
	for _, s := range variant.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		regular, err := verifyInstance(table, InstanceDir(out, s), s, mode)
		if err != nil {
			return err
		}
		if regular {
			physical++
		}
	}

	if mode == LinkSymlink && physical != 1 {
		return fmt.Errorf("%w: %d instances hold regular shared files, want 1", ErrVerify, physical)
	}

	log.Info().
		Str("out", out).
		Int("instances", len(idx.Instances)).
		Int("physical_instances", physical).
		Msg("release tree verified")
	return nil
}

// sharedNames returns the flattened manifest names.
func sharedNames() []string {
	names := make([]string, len(Manifest))
	for i, p := range Manifest {
		names[i] = filepath.Base(p)
	}
	return names
}

// checkIndexFiles resolves every indexed name through table and compares
// checksums. Unknown names, missing names and stale checksums all fail.
func checkIndexFiles(table *FileTable, files map[string]FileInfo) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e, ok := table.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: index lists unknown shared file %s", ErrVerify, name)
		}
		if e.Handle.String() != files[name].Checksum {
			return fmt.Errorf("%w: canonical %s changed since materialization", ErrVerify, name)
		}
	}
	if len(files) != table.Len() {
		return fmt.Errorf("%w: index lists %d shared files, want %d", ErrVerify, len(files), table.Len())
	}
	return nil
}

// verifyInstance reports whether dir holds the shared files as regular files.
func verifyInstance(table *FileTable, dir string, s variant.Scheme, mode LinkMode) (bool, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerify, err)
	}
	for _, d := range dirents {
		name := d.Name()
		if name == ParamsHeader || name == ParamFile(s) {
			continue
		}
		if _, ok := table.Lookup(name); !ok {
			return false, fmt.Errorf("%w: unexpected file %s", ErrVerify, filepath.Join(dir, name))
		}
	}

	regular := true
	for _, e := range table.Entries() {
		p := filepath.Join(dir, e.Name)
		if fileutil.IsSymlink(p) {
			regular = false
			if s == variant.Canonical {
				return false, fmt.Errorf("%w: canonical %s is a symlink", ErrVerify, e.Name)
			}
		} else if mode == LinkSymlink && s != variant.Canonical {
			return false, fmt.Errorf("%w: %s is a regular file in a symlink tree", ErrVerify, p)
		}

		h, err := HashFile(p)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrVerify, p, err)
		}
		if h != e.Handle {
			return false, fmt.Errorf("%w: %s differs from canonical", ErrVerify, p)
		}
	}

	if !fileutil.IsNonEmpty(filepath.Join(dir, ParamFile(s))) {
		return false, fmt.Errorf("%w: %s missing or empty in %s", ErrVerify, ParamFile(s), dir)
	}

	hdr, err := os.ReadFile(filepath.Join(dir, ParamsHeader))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerify, err)
	}
	for _, m := range params.Values(s) {
		line := "#define " + m.Name + " " + m.Value + "\n"
		if !strings.Contains(string(hdr), line) {
			return false, fmt.Errorf("%w: %s/%s lacks %q", ErrVerify, dir, ParamsHeader, strings.TrimSpace(line))
		}
	}
	return regular, nil
}
