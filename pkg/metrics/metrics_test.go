package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eunmann/mqom2-manage/pkg/report"
)

func record(path string, withCycles bool) *report.BenchmarkRecord {
	rec := &report.BenchmarkRecord{
		Path:        path,
		Correctness: 10,
		KeyGen:      report.Pair{0.5, 0.01},
		Sign:        report.Pair{4, 0.25},
		Verif:       report.Pair{3.75, 0.5},
		PKSize:      52,
		SKSize:      78,
		SigSizeMax:  3212,
		SigSize:     report.Pair{3200.5, 4},
		Timestamp:   1740838953,
	}
	if withCycles {
		c := 9000000.0
		rec.SignCycles = &c
	}
	return rec
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(record("cat1_gf16_fast_r5", true))
	r.Observe(record("cat1_gf2_fast_r5", false))

	if got := testutil.ToFloat64(r.opMillis.WithLabelValues("cat1_gf16_fast_r5", OpSign)); got != 4 {
		t.Errorf("sign ms = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.opStdMillis.WithLabelValues("cat1_gf16_fast_r5", OpVerify)); got != 0.5 {
		t.Errorf("verify std = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(r.sizeBytes.WithLabelValues("cat1_gf2_fast_r5", "sig")); got != 3200.5 {
		t.Errorf("sig size = %v", got)
	}
	if got := testutil.ToFloat64(r.schemesTotal); got != 2 {
		t.Errorf("schemes total = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(r.opCycles); got != 1 {
		t.Errorf("cycle series = %d, want 1 (only the record with cycles)", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(record("cat3_gf256_short_r3", true))

	path := filepath.Join(t.TempDir(), "mqom2.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`mqom2_operation_milliseconds{op="sign",scheme="cat3_gf256_short_r3"} 4`,
		`mqom2_operation_cycles{op="sign",scheme="cat3_gf256_short_r3"} 9e+06`,
		`mqom2_correct_signatures{scheme="cat3_gf256_short_r3"} 10`,
		`mqom2_schemes_benchmarked_total 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestWriteTextfileBadDir(t *testing.T) {
	r := NewRecorder()
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "m.prom")); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
