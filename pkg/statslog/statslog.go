// Package statslog persists benchmark records as a JSON array that stays
// recoverable after a crash: every record is fsynced as it is appended and
// the closing bracket is written on every exit path.
package statslog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eunmann/mqom2-manage/pkg/report"
)

// TimeLayout names log files, e.g. 20250301_142233.json.
const TimeLayout = "20060102_150405"

// ErrClosed indicates an append after Close.
var ErrClosed = errors.New("statslog: log is closed")

// Log is an open stats file. It is safe for concurrent use, so a signal
// handler may close it while the main loop appends.
type Log struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	n      int
	closed bool
}

// Create opens <dir>/<now>.json and writes the opening bracket.
func Create(dir string, now time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stats dir: %w", err)
	}

	f, path, err := createUnique(dir, now.Format(TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("create stats file: %w", err)
	}

	l := &Log{f: f, path: path}
	if err := l.writeSync([]byte("[")); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// maxSuffix bounds the collision suffixes tried for one timestamp.
const maxSuffix = 1000

// createUnique creates <dir>/<stem>.json exclusively, falling back to
// <stem>_1.json, <stem>_2.json and so on when runs start in the same second.
func createUnique(dir, stem string) (*os.File, string, error) {
	for i := 0; i < maxSuffix; i++ {
		name := stem + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", stem, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%s: %d files already exist", filepath.Join(dir, stem), maxSuffix)
}

// Path returns the file path of the log.
func (l *Log) Path() string {
	return l.path
}

// Len returns the number of records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Append writes rec, preceded by a separator when it is not the first,
// and fsyncs before returning.
func (l *Log) Append(rec *report.BenchmarkRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.n > 0 {
		data = append([]byte(","), data...)
	}
	if err := l.writeSync(data); err != nil {
		return err
	}
	l.n++
	return nil
}

// Close writes the closing bracket, fsyncs and closes the file. Only the
// first call has any effect.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	werr := l.writeSync([]byte("]"))
	cerr := l.f.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("close stats file: %w", cerr)
	}
	return nil
}

func (l *Log) writeSync(p []byte) error {
	if _, err := l.f.Write(p); err != nil {
		return fmt.Errorf("write stats file: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync stats file: %w", err)
	}
	return nil
}

// ReadRecords parses a stats log. Logs cut short before the closing bracket
// are accepted.
func ReadRecords(path string) ([]report.BenchmarkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("[")) {
		return nil, fmt.Errorf("read stats file %s: not a JSON array", path)
	}
	if !bytes.HasSuffix(data, []byte("]")) {
		data = append(bytes.TrimRight(data, ","), ']')
	}

	var recs []report.BenchmarkRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal stats file %s: %w", path, err)
	}
	return recs, nil
}
