// Package buildtest provides a scripted build.Runner for tests.
package buildtest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eunmann/mqom2-manage/pkg/build"
)

// Handler produces the result of one command.
type Handler func(cmd build.Command) (build.Output, error)

// Runner records every command and answers from handlers keyed by the
// base name of the executable (e.g. "make", "cat1_gf2_fast_r5_bench").
// Commands with no handler succeed with empty output.
type Runner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []build.Command
}

// NewRunner returns an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// Handle registers h for executables whose base name is name.
func (r *Runner) Handle(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Reply registers a fixed output for name.
func (r *Runner) Reply(name string, out build.Output) {
	r.Handle(name, func(build.Command) (build.Output, error) { return out, nil })
}

// Run implements build.Runner.
func (r *Runner) Run(ctx context.Context, cmd build.Command) (build.Output, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	h := r.handlers[filepath.Base(cmd.Name)]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return build.Output{}, err
	}
	if h == nil {
		return build.Output{}, nil
	}
	return h(cmd)
}

// Calls returns a copy of the recorded commands.
func (r *Runner) Calls() []build.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]build.Command(nil), r.calls...)
}

// Trace renders the recorded commands as "<base> <args>" lines.
func (r *Runner) Trace() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.TrimSpace(filepath.Base(c.Name) + " " + strings.Join(c.Args, " "))
	}
	return out
}

// BenchReport renders a bench tool report for algo with the given
// repetition count and correct verifications.
func BenchReport(algo string, reps, correct int, skSize int) string {
	return fmt.Sprintf(`===== SCHEME CONFIG =====
[API] Algo Name: %s
[API] Algo Version: 2.0
Instruction Sets: AVX2
Debug: Off

===== BENCHMARK =====
Correctness: %d/%d

Timing in ms:
 - Key Gen: 0.42 ms (std=0.01)
 - Sign:    3.5 ms (std=0.2)
 - Verify:  3.25 ms (std=0.125)

Communication cost:
 - PK size: 52 B
 - SK size: %d B
 - Signature size (MAX): 3212 B
 - Signature size: 3212 B (std=0)
`, algo, correct, reps, skSize)
}
