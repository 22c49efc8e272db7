// Package build drives the C build system and the per-variant executables
// it produces: bench, kat_gen and kat_check.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/logging"
	"github.com/eunmann/mqom2-manage/pkg/params"
	"github.com/eunmann/mqom2-manage/pkg/report"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// Target is a make target producing one executable per variant.
type Target string

const (
	TargetBench    Target = "bench"
	TargetKATGen   Target = "kat_gen"
	TargetKATCheck Target = "kat_check"
)

// AllTargets is the compile order used when nothing is excluded.
var AllTargets = []Target{TargetBench, TargetKATGen, TargetKATCheck}

// Environment variables consumed by the Makefile.
const (
	EnvExtraCFlags     = "EXTRA_CFLAGS"
	EnvDestinationPath = "DESTINATION_PATH"
	EnvPrefixExec      = "PREFIX_EXEC"
)

// leakSummaryMarker identifies the leak checker's verdict line.
const leakSummaryMarker = "ERROR SUMMARY"

// Config locates the build system. Every path is explicit; nothing depends on
// the process working directory.
type Config struct {
	// Root holds the Makefile. Executables run with Root as working directory.
	Root string
	// BuildDir receives the executables (DESTINATION_PATH).
	BuildDir string
	// KATDir holds one directory per variant for generated KAT files.
	KATDir string
	// BaseCFlags is the caller's EXTRA_CFLAGS before variant selection.
	BaseCFlags string
	// Make is the make executable.
	Make string
	// LeakChecker is the leak checking executable, e.g. valgrind.
	LeakChecker string
	// LeakCheckArgs precede the executable path on the leak checker command line.
	LeakCheckArgs []string
}

// DefaultConfig returns a Config rooted at root with the conventional layout.
func DefaultConfig(root string) Config {
	return Config{
		Root:          root,
		BuildDir:      filepath.Join(root, "build"),
		KATDir:        root,
		BaseCFlags:    os.Getenv(EnvExtraCFlags),
		Make:          "make",
		LeakChecker:   "valgrind",
		LeakCheckArgs: []string{"--leak-check=yes"},
	}
}

// Orchestrator runs build and execution steps for individual variants.
type Orchestrator struct {
	cfg    Config
	runner Runner
	now    func() time.Time
}

// New returns an Orchestrator. A nil runner selects ExecRunner.
func New(cfg Config, runner Runner) *Orchestrator {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Orchestrator{cfg: cfg, runner: runner, now: time.Now}
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// CFlags returns EXTRA_CFLAGS for s.
func (o *Orchestrator) CFlags(s variant.Scheme) string {
	return params.CFlags(o.cfg.BaseCFlags, s)
}

// Compilation describes the build environment of s the way it is recorded
// in benchmark records.
func (o *Orchestrator) Compilation(s variant.Scheme) string {
	return EnvExtraCFlags + `="` + o.CFlags(s) + `"`
}

// Env returns the shell line that reproduces the build environment of s.
func (o *Orchestrator) Env(s variant.Scheme) string {
	return "export " + o.Compilation(s)
}

// Binary returns the path of the executable built for s and target.
func (o *Orchestrator) Binary(s variant.Scheme, t Target) string {
	return filepath.Join(o.cfg.BuildDir, s.Label()+"_"+string(t))
}

// KATDir returns the working directory for KAT generation of s.
func (o *Orchestrator) KATDir(s variant.Scheme) string {
	return filepath.Join(o.cfg.KATDir, s.Label())
}

// MakeClean runs "make clean" in the build root.
func (o *Orchestrator) MakeClean(ctx context.Context) error {
	out, err := o.runner.Run(ctx, Command{Name: o.cfg.Make, Args: []string{"clean"}, Dir: o.cfg.Root})
	if err != nil {
		return fmt.Errorf("make clean: %w", err)
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("%w: make clean exited %d: %s", ErrBuildFailed, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return nil
}

// Clean removes build objects and the build directory.
func (o *Orchestrator) Clean(ctx context.Context) error {
	if err := o.MakeClean(ctx); err != nil {
		return err
	}
	if err := fileutil.RemoveAll(o.cfg.BuildDir); err != nil {
		return fmt.Errorf("remove build dir: %w", err)
	}
	return nil
}

// Compile cleans objects and builds targets for s, one make invocation each.
func (o *Orchestrator) Compile(ctx context.Context, s variant.Scheme, targets []Target) error {
	log := logctx.FromContext(ctx)
	start := time.Now()

	if err := os.MkdirAll(o.cfg.BuildDir, 0o755); err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}

	// Objects from a previous variant were built with different defines.
	if err := o.MakeClean(ctx); err != nil {
		return err
	}

	env := []string{
		EnvExtraCFlags + "=" + o.CFlags(s),
		EnvDestinationPath + "=" + o.cfg.BuildDir,
		EnvPrefixExec + "=" + s.Label(),
	}
	for _, t := range targets {
		out, err := o.runner.Run(ctx, Command{Name: o.cfg.Make, Args: []string{string(t)}, Dir: o.cfg.Root, Env: env})
		if err != nil {
			return fmt.Errorf("make %s: %w", t, err)
		}
		if err := CheckStderr(out.Stderr); err != nil {
			return fmt.Errorf("make %s: %w", t, err)
		}
		if out.ExitCode != 0 {
			return fmt.Errorf("%w: make %s exited %d", ErrBuildFailed, t, out.ExitCode)
		}
		if out.Stderr != "" {
			log.Warn().Str("target", string(t)).Str("stderr", out.Stderr).Msg("compiler diagnostics")
		}
	}

	logging.PhaseComplete(log, "compile", time.Since(start)).
		Int("targets", len(targets)).
		LogDebug("variant compiled")
	return nil
}

// RunBench runs the bench executable of s for reps repetitions and parses
// its report. Every repetition must verify.
func (o *Orchestrator) RunBench(ctx context.Context, s variant.Scheme, reps int) (*report.BenchmarkRecord, error) {
	out, err := o.runner.Run(ctx, Command{
		Name: o.Binary(s, TargetBench),
		Args: []string{strconv.Itoa(reps)},
		Dir:  o.cfg.Root,
	})
	if err != nil {
		return nil, fmt.Errorf("run bench: %w", err)
	}
	if err := CheckStderr(out.Stderr); err != nil {
		return nil, fmt.Errorf("run bench: %w", err)
	}

	rec, err := report.ParseBench(out.Stdout, reps)
	if err != nil {
		return nil, err
	}
	if rec.Correctness != int64(reps) {
		return nil, fmt.Errorf("%w: %d/%d", ErrCorrectness, rec.Correctness, reps)
	}

	rec.Path = s.Label()
	rec.Compilation = o.Compilation(s)
	rec.Timestamp = float64(o.now().UnixNano()) / 1e9
	return rec, nil
}

// RunKATGen runs kat_gen for s inside its KAT directory.
func (o *Orchestrator) RunKATGen(ctx context.Context, s variant.Scheme) (Output, error) {
	return o.runInKATDir(ctx, s, TargetKATGen)
}

// RunKATCheck runs kat_check for s inside its KAT directory.
func (o *Orchestrator) RunKATCheck(ctx context.Context, s variant.Scheme) (Output, error) {
	return o.runInKATDir(ctx, s, TargetKATCheck)
}

func (o *Orchestrator) runInKATDir(ctx context.Context, s variant.Scheme, t Target) (Output, error) {
	dir := o.KATDir(s)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create KAT dir: %w", err)
	}
	out, err := o.runner.Run(ctx, Command{Name: o.Binary(s, t), Dir: dir})
	if err != nil {
		return out, fmt.Errorf("run %s: %w", t, err)
	}
	if err := CheckStderr(out.Stderr); err != nil {
		return out, fmt.Errorf("run %s: %w", t, err)
	}
	return out, nil
}

// RunLeakCheck runs the bench executable of s once under the leak checker
// and returns the summary line. The leak checker's own stderr is not
// subject to the error rule; its summary always contains "ERROR".
func (o *Orchestrator) RunLeakCheck(ctx context.Context, s variant.Scheme) (string, error) {
	args := append(append([]string{}, o.cfg.LeakCheckArgs...), o.Binary(s, TargetBench), "1")
	out, err := o.runner.Run(ctx, Command{Name: o.cfg.LeakChecker, Args: args, Dir: o.cfg.Root})
	if err != nil {
		return "", fmt.Errorf("run %s: %w", o.cfg.LeakChecker, err)
	}
	return LeakSummary(out.Stderr)
}

// LeakSummary returns the first stderr line carrying the leak verdict.
func LeakSummary(stderr string) (string, error) {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, leakSummaryMarker) {
			return strings.TrimSpace(line), nil
		}
	}
	return "", ErrNoLeakSummary
}

// CheckStderr fails when stderr mentions "error" in any letter case.
func CheckStderr(stderr string) error {
	if stderr == "" {
		return nil
	}
	if strings.Contains(strings.ToLower(stderr), "error") {
		return fmt.Errorf("%w: %s", ErrBuildFailed, strings.TrimSpace(stderr))
	}
	return nil
}
