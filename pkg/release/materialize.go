// Package release materializes the per-variant release tree consumed by
// embedded benchmarking frameworks. All variants share one physical copy of
// the implementation; every other instance links to it.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/logging"
	"github.com/eunmann/mqom2-manage/pkg/params"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// LinkMode selects how non-canonical instances reference shared files.
type LinkMode int

const (
	// LinkAuto uses symlinks when the output filesystem supports them, else copies.
	LinkAuto LinkMode = iota
	// LinkSymlink always uses relative symlinks.
	LinkSymlink
	// LinkCopy duplicates the canonical files into every instance.
	LinkCopy
)

func (m LinkMode) String() string {
	switch m {
	case LinkSymlink:
		return "symlink"
	case LinkCopy:
		return "copy"
	default:
		return "auto"
	}
}

// ParseLinkMode parses "auto", "symlink" or "copy".
func ParseLinkMode(s string) (LinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LinkAuto, nil
	case "symlink":
		return LinkSymlink, nil
	case "copy":
		return LinkCopy, nil
	default:
		return LinkAuto, fmt.Errorf("%w: %q", ErrUnknownLinkMode, s)
	}
}

// Options configures Materialize.
type Options struct {
	// Source is the implementation source root (holds the manifest files and parameters/).
	Source string
	// Out is the release root. It is destroyed and recreated.
	Out string
	// Profile supplies the tuning block of every parameters.h. Nil means the default profile.
	Profile *params.Profile
	// LinkMode selects symlinks or copies for shared files.
	LinkMode LinkMode
}

// Instance is one materialized variant.
type Instance struct {
	Scheme    variant.Scheme
	Dir       string
	Canonical bool
}

// Result summarizes a materialized tree.
type Result struct {
	Out       string
	Canonical string
	LinkMode  LinkMode // resolved, never LinkAuto
	Instances []Instance
	Table     *FileTable
}

// Materialize builds the release tree for every variant. The canonical
// instance is written first and holds the only physical copy of the shared
// sources; any error aborts the run.
func Materialize(ctx context.Context, opts Options) (*Result, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	profile := params.DefaultProfile()
	if opts.Profile != nil {
		profile = *opts.Profile
	}

	table, err := NewFileTable(opts.Source, Manifest)
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}

	schemes := variant.All()
	for _, s := range schemes {
		p := filepath.Join(opts.Source, paramsDir, ParamFile(s))
		if !fileutil.Exists(p) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, p)
		}
	}

	if err := fileutil.RemoveAll(opts.Out); err != nil {
		return nil, fmt.Errorf("clear output: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(opts.Out, signDir), 0o755); err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}

	mode := opts.LinkMode
	if mode == LinkAuto {
		mode = probeLinkMode(opts.Out)
	}

	res := &Result{
		Out:       opts.Out,
		Canonical: InstanceDir(opts.Out, variant.Canonical),
		LinkMode:  mode,
		Instances: make([]Instance, 0, len(schemes)),
		Table:     table,
	}

	log.Info().
		Str("source", opts.Source).
		Str("out", opts.Out).
		Str("link_mode", mode.String()).
		Int("files", table.Len()).
		Int("instances", len(schemes)).
		Msg("materializing release tree")

	m := &materializer{table: table, profile: profile, res: res}
	for _, s := range schemes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		instStart := time.Now()
		inst, err := m.instance(opts.Source, s)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", InstanceName(s), err)
		}
		res.Instances = append(res.Instances, inst)

		logging.InstanceCreated(log, time.Since(instStart)).
			Str("instance", InstanceName(s)).
			Bool("canonical", inst.Canonical).
			LogDebug("instance created")
	}

	if err := WriteIndex(res); err != nil {
		return nil, err
	}

	logging.PhaseComplete(log, "release", time.Since(start)).
		Int("instances", len(res.Instances)).
		Bytes("shared_bytes", table.TotalBytes()).
		Str("link_mode", mode.String()).
		Log("release tree materialized")

	return res, nil
}

type materializer struct {
	table   *FileTable
	profile params.Profile
	res     *Result
}

func (m *materializer) instance(src string, s variant.Scheme) (Instance, error) {
	dir := InstanceDir(m.res.Out, s)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Instance{}, fmt.Errorf("create instance dir: %w", err)
	}

	canonical := s == variant.Canonical
	for _, e := range m.table.Entries() {
		dst := filepath.Join(dir, e.Name)
		var err error
		switch {
		case canonical:
			err = fileutil.CopyFile(filepath.Join(src, e.Path), dst)
		case m.res.LinkMode == LinkSymlink:
			err = os.Symlink(linkTarget(e.Name), dst)
		default:
			err = fileutil.CopyFile(filepath.Join(m.res.Canonical, e.Name), dst)
		}
		if err != nil {
			return Instance{}, fmt.Errorf("place %s: %w", e.Name, err)
		}
	}

	pf := ParamFile(s)
	if err := fileutil.CopyFile(filepath.Join(src, paramsDir, pf), filepath.Join(dir, pf)); err != nil {
		return Instance{}, fmt.Errorf("copy %s: %w", pf, err)
	}

	if err := fileutil.WriteFileSync(filepath.Join(dir, ParamsHeader), []byte(m.profile.Generate(s))); err != nil {
		return Instance{}, fmt.Errorf("write %s: %w", ParamsHeader, err)
	}

	if canonical {
		if err := patchUmbrellaFile(filepath.Join(dir, UmbrellaHeader)); err != nil {
			return Instance{}, err
		}
	}

	if err := fileutil.SyncDir(dir); err != nil {
		return Instance{}, fmt.Errorf("sync instance dir: %w", err)
	}

	return Instance{Scheme: s, Dir: dir, Canonical: canonical}, nil
}

func patchUmbrellaFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read umbrella header: %w", err)
	}
	patched, err := PatchUmbrella(string(data))
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileSync(path, []byte(patched)); err != nil {
		return fmt.Errorf("write umbrella header: %w", err)
	}
	return nil
}

// probeLinkMode creates and removes a throwaway symlink under dir.
func probeLinkMode(dir string) LinkMode {
	probe := filepath.Join(dir, ".symlink-probe")
	if err := os.Symlink(".", probe); err != nil {
		logging.L().Warn().Err(err).Str("dir", dir).Msg("symlinks unsupported, copying shared files")
		return LinkCopy
	}
	os.Remove(probe)
	return LinkSymlink
}
