// Package harness runs the regression and benchmark sequences over a set of
// variants, strictly one variant at a time.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/build"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
	"github.com/eunmann/mqom2-manage/pkg/hostinfo"
	"github.com/eunmann/mqom2-manage/pkg/logging"
	"github.com/eunmann/mqom2-manage/pkg/report"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// KATSuccessMarker is printed by kat_check when every vector matches.
const KATSuccessMarker = "Everything is fine!"

// RequestName returns the KAT request file name for a secret-key size.
func RequestName(skSize int64) string {
	return "PQCsignKAT_" + strconv.FormatInt(skSize, 10) + ".req"
}

// ResponseName returns the KAT response file name for a secret-key size.
func ResponseName(skSize int64) string {
	return "PQCsignKAT_" + strconv.FormatInt(skSize, 10) + ".rsp"
}

// Harness sequences orchestrator steps and reports progress lines to out.
type Harness struct {
	orch *build.Orchestrator
	out  io.Writer
}

// New returns a Harness. A nil out discards report lines.
func New(orch *build.Orchestrator, out io.Writer) *Harness {
	if out == nil {
		out = io.Discard
	}
	return &Harness{orch: orch, out: out}
}

// TestOptions configures Test.
type TestOptions struct {
	Reps int
	// Reference enables byte comparison of the generated response file.
	Reference *Reference
	// LeakCheck runs the bench executable once under the leak checker.
	LeakCheck bool
}

// TestResult is the outcome of one variant's regression sequence.
type TestResult struct {
	Scheme      variant.Scheme
	Record      *report.BenchmarkRecord
	Request     string
	Response    string
	Compared    bool
	LeakSummary string
}

// Test runs build, benchmark, KAT generation, KAT self-check, optional
// reference comparison and optional leak check for s, stopping at the first
// fatal step.
func (h *Harness) Test(ctx context.Context, s variant.Scheme, opts TestOptions) (*TestResult, error) {
	ctx = logctx.WithScheme(ctx, s.Label())
	log := logctx.FromContext(ctx)
	start := time.Now()

	fmt.Fprintf(h.out, "[+] %s\n", s.Label())

	if err := h.orch.Compile(ctx, s, build.AllTargets); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label(), err)
	}

	rec, err := h.orch.RunBench(ctx, s, opts.Reps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label(), err)
	}
	res := &TestResult{Scheme: s, Record: rec}

	if _, err := h.orch.RunKATGen(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label(), err)
	}
	katDir := h.orch.KATDir(s)
	res.Request = filepath.Join(katDir, RequestName(rec.SKSize))
	res.Response = filepath.Join(katDir, ResponseName(rec.SKSize))
	if !fileutil.Exists(res.Request) || !fileutil.Exists(res.Response) {
		fmt.Fprintln(h.out, " - KAT generation: ERROR!")
		return nil, fmt.Errorf("%w: %s: expected %s and %s", ErrKATFilesMissing, s.Label(), res.Request, res.Response)
	}
	fmt.Fprintln(h.out, " - KAT generation: ok")

	out, err := h.orch.RunKATCheck(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label(), err)
	}
	if !strings.Contains(out.Stdout, KATSuccessMarker) {
		return nil, fmt.Errorf("%w: %s: %s", ErrKATCheck, s.Label(), strings.TrimSpace(out.Stdout))
	}
	fmt.Fprintln(h.out, " - KAT check: ok")

	if opts.Reference != nil {
		if err := compareReference(opts.Reference, s, rec.SKSize, res.Response); err != nil {
			fmt.Fprintf(h.out, " - KAT check with reference KAT: ERROR! (for %s)\n", res.Response)
			return nil, err
		}
		res.Compared = true
		fmt.Fprintln(h.out, " - KAT check with reference KAT: ok")
	}

	if opts.LeakCheck {
		summary, err := h.orch.RunLeakCheck(ctx, s)
		switch {
		case err == nil:
			res.LeakSummary = summary
			fmt.Fprintf(h.out, " - Valgrind: \"%s\"\n", summary)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			// The summary is informational; only a checker that cannot run is fatal.
			if !errors.Is(err, build.ErrNoLeakSummary) {
				return nil, fmt.Errorf("%s: %w", s.Label(), err)
			}
			log.Warn().Err(err).Msg("leak check produced no summary")
			fmt.Fprintln(h.out, " - Valgrind: no summary")
		}
	}

	logging.SchemeComplete(log, "test", time.Since(start)).
		Str("scheme", s.Label()).
		Int64("sk_size", rec.SKSize).
		Bool("reference_compared", res.Compared).
		Str("leak_summary", res.LeakSummary).
		Log("scheme passed")
	return res, nil
}

// TestAll runs Test over schemes in order, aborting on the first failure.
func (h *Harness) TestAll(ctx context.Context, schemes []variant.Scheme, opts TestOptions) ([]*TestResult, error) {
	log := logctx.FromContext(ctx)
	pt := logging.NewProgressTracker("test", int64(len(schemes)), log)

	results := make([]*TestResult, 0, len(schemes))
	for i, s := range schemes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logging.SchemeStarted(log, "test", s.Label(), int64(i), pt.Total())
		start := time.Now()
		res, err := h.Test(ctx, s, opts)
		if err != nil {
			pt.RecordFailure()
			return results, err
		}
		pt.RecordCompletion(time.Since(start))
		results = append(results, res)
	}

	logging.PhaseComplete(log, "test", pt.Elapsed()).
		ProgressFromTracker(pt).
		Log("all schemes passed")
	return results, nil
}

// Sink receives benchmark records as they are produced.
type Sink interface {
	Append(rec *report.BenchmarkRecord) error
}

// BenchOptions configures Bench.
type BenchOptions struct {
	Reps  int
	RunID string
	Host  *hostinfo.Info
	// Observe, when set, sees every record after it is persisted.
	Observe func(rec *report.BenchmarkRecord)
}

// Bench benchmarks schemes in order and appends each record to sink. It
// checks ctx before every variant; on cancellation it returns ctx.Err()
// along with the records persisted so far.
func (h *Harness) Bench(ctx context.Context, schemes []variant.Scheme, sink Sink, opts BenchOptions) ([]*report.BenchmarkRecord, error) {
	log := logctx.FromContext(ctx)
	pt := logging.NewProgressTracker("bench", int64(len(schemes)), log)
	fmt.Fprintf(h.out, "Nb repetitions: %d\n", opts.Reps)

	recs := make([]*report.BenchmarkRecord, 0, len(schemes))
	for i, s := range schemes {
		if err := ctx.Err(); err != nil {
			return recs, err
		}
		sctx := logctx.WithScheme(ctx, s.Label())
		logging.SchemeStarted(log, "bench", s.Label(), int64(i), pt.Total())
		fmt.Fprintf(h.out, "[+] %s\n", s.Label())
		start := time.Now()

		rec, err := h.orch.RunBench(sctx, s, opts.Reps)
		if err != nil {
			pt.RecordFailure()
			if ctx.Err() != nil {
				return recs, ctx.Err()
			}
			return recs, fmt.Errorf("%s: %w", s.Label(), err)
		}
		rec.RunID = opts.RunID
		rec.Host = opts.Host

		if err := sink.Append(rec); err != nil {
			return recs, fmt.Errorf("%s: persist record: %w", s.Label(), err)
		}
		if opts.Observe != nil {
			opts.Observe(rec)
		}
		recs = append(recs, rec)
		pt.RecordCompletion(time.Since(start))

		logging.SchemeComplete(logctx.FromContext(sctx), "bench", time.Since(start)).
			Millis("keygen_ms", rec.KeyGen[0]).
			Millis("sign_ms", rec.Sign[0]).
			Millis("verif_ms", rec.Verif[0]).
			Cycles("sign_cycles", rec.SignCycles).
			Bytes("sig_size", int64(rec.SigSize[0])).
			ProgressFromTracker(pt).
			Log("scheme benchmarked")
	}

	logging.PhaseComplete(log, "bench", pt.Elapsed()).
		ProgressFromTracker(pt).
		Log("benchmark finished")
	return recs, nil
}
