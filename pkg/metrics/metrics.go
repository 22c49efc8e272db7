// Package metrics exposes benchmark results as Prometheus gauges and writes
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eunmann/mqom2-manage/pkg/report"
)

const namespace = "mqom2"

// Operation label values.
const (
	OpKeyGen = "keygen"
	OpSign   = "sign"
	OpVerify = "verify"
)

// Recorder holds one gauge family per measurement, labeled by scheme.
type Recorder struct {
	reg *prometheus.Registry

	opMillis     *prometheus.GaugeVec
	opStdMillis  *prometheus.GaugeVec
	opCycles     *prometheus.GaugeVec
	sizeBytes    *prometheus.GaugeVec
	correctness  *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
	schemesTotal prometheus.Counter
}

// NewRecorder creates a Recorder on a private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		opMillis: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_milliseconds",
			Help:      "Mean wall time of one operation",
		}, []string{"scheme", "op"}),
		opStdMillis: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_std_milliseconds",
			Help:      "Standard deviation of one operation's wall time",
		}, []string{"scheme", "op"}),
		opCycles: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_cycles",
			Help:      "Mean CPU cycles of one operation",
		}, []string{"scheme", "op"}),
		sizeBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "size_bytes",
			Help:      "Key and signature sizes",
		}, []string{"scheme", "object"}),
		correctness: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "correct_signatures",
			Help:      "Signatures that verified during the benchmark",
		}, []string{"scheme"}),
		lastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the benchmark run",
		}, []string{"scheme"}),
		schemesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schemes_benchmarked_total",
			Help:      "Schemes benchmarked by this invocation",
		}),
	}
}

// Observe records one benchmark record.
func (r *Recorder) Observe(rec *report.BenchmarkRecord) {
	s := rec.Path

	for op, p := range map[string]report.Pair{OpKeyGen: rec.KeyGen, OpSign: rec.Sign, OpVerify: rec.Verif} {
		r.opMillis.WithLabelValues(s, op).Set(p[0])
		r.opStdMillis.WithLabelValues(s, op).Set(p[1])
	}
	for op, c := range map[string]*float64{OpKeyGen: rec.KeyGenCycles, OpSign: rec.SignCycles, OpVerify: rec.VerifCycles} {
		if c != nil {
			r.opCycles.WithLabelValues(s, op).Set(*c)
		}
	}

	r.sizeBytes.WithLabelValues(s, "pk").Set(float64(rec.PKSize))
	r.sizeBytes.WithLabelValues(s, "sk").Set(float64(rec.SKSize))
	r.sizeBytes.WithLabelValues(s, "sig_max").Set(float64(rec.SigSizeMax))
	r.sizeBytes.WithLabelValues(s, "sig").Set(rec.SigSize[0])

	r.correctness.WithLabelValues(s).Set(float64(rec.Correctness))

	ts := rec.Timestamp
	if ts == 0 {
		ts = float64(time.Now().Unix())
	}
	r.lastRun.WithLabelValues(s).Set(ts)
	r.schemesTotal.Inc()
}

// WriteTextfile writes all gauges to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
