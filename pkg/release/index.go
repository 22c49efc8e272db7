package release

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// IndexVersion is the current release index format version.
const IndexVersion = 1

// IndexFile is written at the release root.
const IndexFile = "release-index.json"

// Index describes a materialized release tree.
type Index struct {
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"created_at"`
	Canonical string              `json:"canonical"`
	LinkMode  string              `json:"link_mode"`
	Instances []IndexInstance     `json:"instances"`
	Files     map[string]FileInfo `json:"files"`
}

// IndexInstance describes one variant directory.
type IndexInstance struct {
	Label     string `json:"label"`
	Dir       string `json:"dir"` // relative to the release root
	ParamFile string `json:"param_file"`
}

// FileInfo describes a shared file as placed in the canonical instance.
type FileInfo struct {
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"` // BLAKE2b-256 hex
}

// WriteIndex records the instances and the canonical checksums of res.
// Checksums are taken after patching, so they describe what every instance
// resolves to.
func WriteIndex(res *Result) error {
	idx := Index{
		Version:   IndexVersion,
		CreatedAt: time.Now().UTC(),
		Canonical: InstanceName(variant.Canonical),
		LinkMode:  res.LinkMode.String(),
		Instances: make([]IndexInstance, 0, len(res.Instances)),
		Files:     make(map[string]FileInfo, res.Table.Len()),
	}

	for _, inst := range res.Instances {
		rel, err := filepath.Rel(res.Out, inst.Dir)
		if err != nil {
			return fmt.Errorf("relative dir %s: %w", inst.Dir, err)
		}
		idx.Instances = append(idx.Instances, IndexInstance{
			Label:     inst.Scheme.Label(),
			Dir:       filepath.ToSlash(rel),
			ParamFile: ParamFile(inst.Scheme),
		})
	}

	for _, e := range res.Table.Entries() {
		h, size, err := hashFile(filepath.Join(res.Canonical, e.Name))
		if err != nil {
			return fmt.Errorf("checksum %s: %w", e.Name, err)
		}
		idx.Files[e.Name] = FileInfo{Size: size, Checksum: h.String()}
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := fileutil.WriteFileSync(filepath.Join(res.Out, IndexFile), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return fileutil.SyncDir(res.Out)
}

// ReadIndex reads the index from a release root.
func ReadIndex(out string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(out, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	return &idx, nil
}
