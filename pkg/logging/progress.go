package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunmann/mqom2-manage/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker tracks progress over the selected schemes with ETA
// calculation. It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	failed    atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string

	// For moving average of per-scheme durations
	mu              sync.Mutex
	recentDurations []time.Duration
	maxRecent       int
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:           total,
		startTime:       time.Now(),
		log:             log,
		phase:           phase,
		recentDurations: make([]time.Duration, 0, 10),
		maxRecent:       10,
	}
}

// RecordCompletion records that a scheme completed with the given duration.
func (pt *ProgressTracker) RecordCompletion(d time.Duration) {
	pt.completed.Add(1)

	pt.mu.Lock()
	if len(pt.recentDurations) >= pt.maxRecent {
		pt.recentDurations = pt.recentDurations[1:]
	}
	pt.recentDurations = append(pt.recentDurations, d)
	pt.mu.Unlock()
}

// RecordFailure records that a scheme failed.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (completed, failed, total int64) {
	return pt.completed.Load(), pt.failed.Load(), pt.total
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	done := pt.completed.Load() + pt.failed.Load()
	if pt.total == 0 {
		return 100.0
	}
	return float64(done) * 100.0 / float64(pt.total)
}

// ETA returns the estimated time remaining based on the recent completion rate.
func (pt *ProgressTracker) ETA() time.Duration {
	completed := pt.completed.Load()
	if completed == 0 {
		return 0
	}

	remaining := pt.Remaining()
	if remaining <= 0 {
		return 0
	}

	pt.mu.Lock()
	var avgDuration time.Duration
	if len(pt.recentDurations) > 0 {
		var sum time.Duration
		for _, d := range pt.recentDurations {
			sum += d
		}
		avgDuration = sum / time.Duration(len(pt.recentDurations))
	} else {
		avgDuration = time.Since(pt.startTime) / time.Duration(completed)
	}
	pt.mu.Unlock()

	return avgDuration * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Remaining returns how many schemes are remaining.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.completed.Load() - pt.failed.Load()
}

// Total returns the total count.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}

// CompletionEvent helps build consistent completion log events.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  map[string]interface{}
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
		fields:  make(map[string]interface{}),
	}
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Int64 adds an int64 field.
func (ce *CompletionEvent) Int64(key string, val int64) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Bool adds a bool field.
func (ce *CompletionEvent) Bool(key string, val bool) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Bytes adds byte count with optional human-readable companion.
func (ce *CompletionEvent) Bytes(key string, bytes int64) *CompletionEvent {
	ce.fields[key] = bytes
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Bytes(bytes)
	}
	return ce
}

// Millis adds a millisecond measurement with optional human-readable companion.
func (ce *CompletionEvent) Millis(key string, ms float64) *CompletionEvent {
	ce.fields[key] = ms
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Duration(time.Duration(ms * float64(time.Millisecond)))
	}
	return ce
}

// Cycles adds a cycle count when c is set. Builds without cycle counters
// leave it nil and the field is omitted.
func (ce *CompletionEvent) Cycles(key string, c *float64) *CompletionEvent {
	if c == nil {
		return ce
	}
	ce.fields[key] = *c
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Cycles(*c)
	}
	return ce
}

// ProgressFromTracker adds progress fields from a ProgressTracker.
func (ce *CompletionEvent) ProgressFromTracker(pt *ProgressTracker) *CompletionEvent {
	completed, failed, total := pt.Progress()
	ce.fields["completed"] = completed
	ce.fields["failed"] = failed
	ce.fields["total"] = total
	if total > 0 {
		ce.fields["progress_pct"] = float64(completed+failed) * 100.0 / float64(total)
	}
	if eta := pt.ETA(); eta > 0 {
		ce.fields["eta_ms"] = eta.Milliseconds()
		if IsPrettyMode() {
			ce.fields["eta_h"] = humanfmt.Duration(eta)
		}
	}
	return ce
}

// Log emits the completion event.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}

	for k, v := range ce.fields {
		e = e.Interface(k, v)
	}

	e.Msg(msg)
}

// PhaseComplete starts a phase completion event (compile, bench, kat_gen...).
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "phase_completed", phase, elapsed)
}

// SchemeComplete starts a scheme completion event.
func SchemeComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "scheme_completed", phase, elapsed)
}

// InstanceCreated starts a release-instance creation event.
func InstanceCreated(log zerolog.Logger, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "instance_created", "release", elapsed)
}

// SchemeStarted logs a scheme start event.
func SchemeStarted(log zerolog.Logger, phase, label string, done, total int64) {
	log.Info().
		Str("event", "scheme_started").
		Str("phase", phase).
		Str("scheme", label).
		Int64("schemes_done", done).
		Int64("schemes_total", total).
		Msg("scheme started")
}
