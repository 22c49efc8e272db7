package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command is one child process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the parent environment; later entries win.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(strings.Join(c.Env, " ") + " " + c.Name + " " + strings.Join(c.Args, " "))
}

// Output is the captured result of a finished child process.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands. A non-zero exit is reported in Output, not as an
// error; errors mean the process could not run or was canceled.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// defaultSignalGrace is how long a signal-killed child waits for the
// matching context cancellation.
const defaultSignalGrace = 250 * time.Millisecond

// ExecRunner runs commands with os/exec. Canceling ctx kills the child.
//
// A terminal interrupt reaches the child and the tool at once, so the child
// may die before ctx is canceled. A child killed by a signal is therefore
// treated as canceled when ctx is canceled within SignalGrace.
type ExecRunner struct {
	// SignalGrace defaults to 250ms.
	SignalGrace time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		// ExitCode is -1 when the process was terminated by a signal.
		if out.ExitCode == -1 {
			return out, r.awaitCancel(ctx, c, exitErr)
		}
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("run %s: %w", c.Name, err)
	}
	return out, nil
}

func (r ExecRunner) awaitCancel(ctx context.Context, c Command, exitErr *exec.ExitError) error {
	grace := r.SignalGrace
	if grace <= 0 {
		grace = defaultSignalGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s: %v", ErrSignaled, c.Name, exitErr.ProcessState)
	}
}
