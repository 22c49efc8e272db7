package release

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"

	"github.com/relab/bbhash"
	"golang.org/x/crypto/blake2b"
)

// Handle is the BLAKE2b-256 digest of a file's bytes.
type Handle [blake2b.Size256]byte

func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// Entry is one shared source file.
type Entry struct {
	Path   string // relative to the table root
	Name   string // flattened name inside an instance directory
	Size   int64
	Handle Handle
}

// FileTable is a content-addressed view of a set of files, indexed by
// flattened name through a minimal perfect hash.
type FileTable struct {
	root    string
	entries []Entry
	mph     *bbhash.BBHash2
	slots   []int // mph position -> entries index
}

// NewFileTable hashes every path under root. Paths must flatten to distinct
// base names; a missing file wraps ErrMissingSource.
func NewFileTable(root string, paths []string) (*FileTable, error) {
	t := &FileTable{root: root, entries: make([]Entry, 0, len(paths))}

	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s and %s both flatten to %s", ErrNameCollision, prev, p, name)
		}
		seen[name] = p

		full := filepath.Join(root, p)
		h, size, err := hashFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrMissingSource, full)
			}
			return nil, fmt.Errorf("hash %s: %w", full, err)
		}
		t.entries = append(t.entries, Entry{Path: p, Name: name, Size: size, Handle: h})
	}

	if err := t.buildIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *FileTable) buildIndex() error {
	if len(t.entries) == 0 {
		return nil
	}

	keys := make([]uint64, len(t.entries))
	for i, e := range t.entries {
		keys[i] = nameKey(e.Name)
	}

	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return fmt.Errorf("build name index: %w", err)
	}

	// BBHash returns 1-indexed positions
	t.slots = make([]int, len(t.entries))
	for i, k := range keys {
		pos := mph.Find(k)
		if pos == 0 {
			return fmt.Errorf("name index lookup failed for %q", t.entries[i].Name)
		}
		t.slots[pos-1] = i
	}
	t.mph = mph
	return nil
}

// Root returns the directory the table was hashed from.
func (t *FileTable) Root() string {
	return t.root
}

// Entries returns the entries in manifest order.
func (t *FileTable) Entries() []Entry {
	return t.entries
}

// Len returns the number of entries.
func (t *FileTable) Len() int {
	return len(t.entries)
}

// Lookup finds the entry with the given flattened name.
func (t *FileTable) Lookup(name string) (Entry, bool) {
	if t.mph == nil {
		return Entry{}, false
	}
	pos := t.mph.Find(nameKey(name))
	if pos == 0 || pos > uint64(len(t.slots)) {
		return Entry{}, false
	}
	// Keys outside the build set may land on any slot.
	e := t.entries[t.slots[pos-1]]
	if e.Name != name {
		return Entry{}, false
	}
	return e, true
}

// TotalBytes returns the summed size of all entries.
func (t *FileTable) TotalBytes() int64 {
	var n int64
	for _, e := range t.entries {
		n += e.Size
	}
	return n
}

func nameKey(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// HashFile returns the content handle of the file at path, following symlinks.
func HashFile(path string) (Handle, error) {
	h, _, err := hashFile(path)
	return h, err
}

func hashFile(path string) (Handle, int64, error) {
	var out Handle

	f, err := os.Open(path)
	if err != nil {
		return out, 0, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return out, 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return out, 0, err
	}
	copy(out[:], h.Sum(nil))
	return out, n, nil
}
