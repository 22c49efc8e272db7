package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eunmann/mqom2-manage/internal/config"
	"github.com/eunmann/mqom2-manage/pkg/build"
	"github.com/eunmann/mqom2-manage/pkg/build/buildtest"
	"github.com/eunmann/mqom2-manage/pkg/harness"
	"github.com/eunmann/mqom2-manage/pkg/params"
	"github.com/eunmann/mqom2-manage/pkg/release"
	"github.com/eunmann/mqom2-manage/pkg/statslog"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// newTestApp returns an app rooted at a fresh directory with a scripted runner.
func newTestApp(t *testing.T) (*app, *buildtest.Runner, *bytes.Buffer, string) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvRoot, "")
	t.Setenv(build.EnvExtraCFlags, "-O3")

	var out bytes.Buffer
	r := buildtest.NewRunner()
	return &app{out: &out, runner: r}, r, &out, t.TempDir()
}

func run(a *app, args ...string) error {
	return a.execute(context.Background(), append(args, "--log-human=false"))
}

func TestUnknownCommand(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	err := a.execute(context.Background(), []string{"unknown"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestEnv(t *testing.T) {
	a, r, out, root := newTestApp(t)

	if err := run(a, "env", "cat1_gf2_fast_r5", "--root", root); err != nil {
		t.Fatalf("env: %v", err)
	}
	s := variant.MustNew(variant.Cat1, variant.GF2, variant.Fast, variant.R5)
	want := `export EXTRA_CFLAGS="-O3 ` + strings.Join(params.Defines(s), " ") + "\"\n"
	if out.String() != want {
		t.Errorf("env = %q, want %q", out.String(), want)
	}
	if len(r.Calls()) != 0 {
		t.Error("env ran commands")
	}
}

func TestEnvUnknownLabel(t *testing.T) {
	a, _, _, root := newTestApp(t)
	if err := run(a, "env", "cat2_gf2_fast_r5", "--root", root); !errors.Is(err, variant.ErrUnknownScheme) {
		t.Fatalf("expected ErrUnknownScheme, got %v", err)
	}
}

func TestCompileNoKAT(t *testing.T) {
	a, r, out, root := newTestApp(t)

	if err := run(a, "compile", "cat3_gf256_short", "--no-kat", "--root", root); err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []string{"make clean", "make bench", "make clean", "make bench"}
	if got := r.Trace(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("trace = %v, want %v", got, want)
	}
	if out.String() != "[+] cat3_gf256_short_r5\n[+] cat3_gf256_short_r3\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCompileBadFilter(t *testing.T) {
	a, r, _, root := newTestApp(t)
	if err := run(a, "compile", "cat1", "cat4", "--root", root); err == nil {
		t.Fatal("expected filter error")
	}
	if len(r.Calls()) != 0 {
		t.Error("commands ran before filter validation")
	}
}

func TestCompileTargets(t *testing.T) {
	if got := compileTargets(false, false); len(got) != 3 {
		t.Errorf("all targets = %v", got)
	}
	if got := compileTargets(true, false); len(got) != 2 || got[0] != build.TargetKATGen {
		t.Errorf("--no-bench targets = %v", got)
	}
	if got := compileTargets(true, true); len(got) != 0 {
		t.Errorf("no targets = %v", got)
	}
}

func TestBench(t *testing.T) {
	a, r, _, root := newTestApp(t)
	for _, label := range []string{"cat1_gf16_fast_r5", "cat1_gf16_fast_r3"} {
		r.Reply(label+"_bench", build.Output{Stdout: buildtest.BenchReport("MQOM2-"+label, 3, 3, 52)})
	}
	statsDir := filepath.Join(root, "stats")
	pq := filepath.Join(root, "bench.parquet")
	prom := filepath.Join(root, "mqom2.prom")

	err := run(a, "bench", "cat1_gf16_fast", "-n", "3", "--root", root,
		"--stats-dir", statsDir, "--parquet", pq, "--metrics-file", prom)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(statsDir, "*.json"))
	if len(matches) != 1 {
		t.Fatalf("stats files = %v", matches)
	}
	recs, err := statslog.ReadRecords(matches[0])
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(recs) != 2 || recs[0].RunID == "" || recs[0].RunID != recs[1].RunID {
		t.Errorf("records = %+v", recs)
	}
	if recs[0].Host == nil || recs[0].Host.CPUs == 0 {
		t.Error("host info missing")
	}
	for _, p := range []string{pq, prom} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", p, err)
		}
	}
}

func TestBenchFailureStillFinalizesLog(t *testing.T) {
	a, r, _, root := newTestApp(t)
	r.Reply("cat5_gf2_short_r5_bench", build.Output{Stdout: buildtest.BenchReport("MQOM2", 3, 3, 52)})
	r.Reply("cat5_gf2_short_r3_bench", build.Output{Stderr: "Segmentation fault: error"})
	statsDir := filepath.Join(root, "stats")

	err := run(a, "bench", "cat5_gf2_short", "-n", "3", "--root", root, "--stats-dir", statsDir)
	if !errors.Is(err, build.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed, got %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(statsDir, "*.json"))
	if len(matches) != 1 {
		t.Fatalf("stats files = %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if !bytes.HasSuffix(data, []byte("]")) {
		t.Errorf("log not finalized: %s", data)
	}
}

func TestBenchInterruptKeepsCompletedRecords(t *testing.T) {
	a, r, _, root := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Reply("cat1_gf2_short_r5_bench", build.Output{Stdout: buildtest.BenchReport("MQOM2", 3, 3, 52)})
	r.Handle("cat1_gf2_short_r3_bench", func(build.Command) (build.Output, error) {
		cancel()
		return build.Output{Stdout: "===== SCHEME CONFIG =====\n"}, context.Canceled
	})

	err := a.execute(ctx, []string{"bench", "cat1_gf2_short", "-n", "3", "--root", root, "--log-human=false"})
	if err != nil {
		t.Fatalf("interrupted bench returned %v, want nil", err)
	}

	matches, _ := filepath.Glob(filepath.Join(root, "stats", "*.json"))
	if len(matches) != 1 {
		t.Fatalf("stats files under root = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var recs []map[string]any
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("stats log is not a JSON array: %v\n%s", err, data)
	}
	if len(recs) != 1 || recs[0]["path"] != "cat1_gf2_short_r5" {
		t.Errorf("records = %v, want only cat1_gf2_short_r5", recs)
	}
}

func TestTestMissingArchiveExitsBeforeWork(t *testing.T) {
	a, r, _, root := newTestApp(t)

	err := run(a, "test", "all", "--root", root, "--compare-kat", filepath.Join(root, "none.zip"))
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != -1 {
		t.Fatalf("expected exit -1, got %v", err)
	}
	if !errors.Is(err, harness.ErrArchive) {
		t.Errorf("expected ErrArchive, got %v", err)
	}
	if len(r.Calls()) != 0 {
		t.Errorf("ran %d commands before opening the archive", len(r.Calls()))
	}
}

func TestTestReferenceMismatchExitCode(t *testing.T) {
	a, r, _, root := newTestApp(t)
	label := "cat1_gf256_fast_r3"
	r.Reply(label+"_bench", build.Output{Stdout: buildtest.BenchReport("MQOM2", 10, 10, 52)})
	r.Handle(label+"_kat_gen", func(c build.Command) (build.Output, error) {
		for _, name := range []string{harness.RequestName(52), harness.ResponseName(52)} {
			if err := os.WriteFile(filepath.Join(c.Dir, name), []byte("generated"), 0o644); err != nil {
				return build.Output{}, err
			}
		}
		return build.Output{}, nil
	})
	r.Reply(label+"_kat_check", build.Output{Stdout: harness.KATSuccessMarker})

	archive := filepath.Join(root, "KAT.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("submission_package_v2/KAT/mqom2_" + label + "/" + harness.ResponseName(52))
	w.Write([]byte("reference"))
	zw.Close()
	f.Close()

	err = run(a, "test", label, "--root", root, "--compare-kat", archive, "--no-valgrind")
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != -1 || !errors.Is(err, harness.ErrKATMismatch) {
		t.Fatalf("expected mismatch with exit -1, got %v", err)
	}
}

func TestTestOtherFailureIsPlainError(t *testing.T) {
	a, r, _, root := newTestApp(t)
	r.Reply("cat1_gf16_fast_r5_bench", build.Output{Stdout: "crashed\n"})

	err := run(a, "test", "cat1_gf16_fast_r5", "--root", root, "--no-valgrind")
	var exit *ExitError
	if err == nil || errors.As(err, &exit) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

const umbrella = `#ifndef __MQOM2_PARAMETERS_GENERIC_H__
#define __MQOM2_PARAMETERS_GENERIC_H__

#if MQOM2_PARAM_SECURITY == 128
#include "parameters/mqom2_parameters_cat1-gf16-fast-r5.h"
#endif

#endif
`

func writeSource(t *testing.T, root string) {
	t.Helper()
	write := func(p, content string) {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range release.Manifest {
		content := "/* " + p + " */\n"
		if p == release.UmbrellaHeader {
			content = umbrella
		}
		write(filepath.Join(root, p), content)
	}
	for _, s := range variant.All() {
		write(filepath.Join(root, "parameters", release.ParamFile(s)), "/* "+s.Label()+" */\n")
	}
}

func TestRelease(t *testing.T) {
	a, r, out, root := newTestApp(t)
	writeSource(t, root)
	dest := filepath.Join(t.TempDir(), "release")

	if err := run(a, "release", "--root", root, "--out", dest, "--link", "copy", "--verify"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !strings.Contains(out.String(), "36 instances") || !strings.HasSuffix(out.String(), "verified\n") {
		t.Errorf("output = %q", out.String())
	}
	if len(r.Calls()) != 0 {
		t.Error("release ran build commands")
	}
	if _, err := os.Stat(filepath.Join(dest, "crypto_sign", "mqom2_cat5_gf256_short_r3", "ref", "parameters.h")); err != nil {
		t.Errorf("instance missing: %v", err)
	}
}

func TestReleaseBadLinkMode(t *testing.T) {
	a, _, _, root := newTestApp(t)
	if err := run(a, "release", "--root", root, "--link", "hardlink"); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{harness.ErrKATMismatch, -1},
		{harness.ErrArchive, -1},
		{harness.ErrNoKATFolder, -1},
		{harness.ErrKATCheck, 0},
		{build.ErrBuildFailed, 0},
	}
	for _, tt := range tests {
		err := exitCode(tt.err)
		var exit *ExitError
		got := 0
		if errors.As(err, &exit) {
			got = exit.Code
		}
		if got != tt.code {
			t.Errorf("exitCode(%v) code = %d, want %d", tt.err, got, tt.code)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("exitCode(%v) lost the cause", tt.err)
		}
	}
	if exitCode(nil) != nil {
		t.Error("exitCode(nil) != nil")
	}
}
