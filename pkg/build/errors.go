package build

import "errors"

var (
	// ErrBuildFailed indicates a build or run step reported an error on stderr.
	ErrBuildFailed = errors.New("build: step reported an error")

	// ErrCorrectness indicates the bench tool verified fewer signatures than it produced.
	ErrCorrectness = errors.New("build: correctness below repetitions")

	// ErrSignaled indicates a child process was killed by a signal that did
	// not come with cancellation of the run.
	ErrSignaled = errors.New("build: process killed by signal")

	// ErrNoLeakSummary indicates the leak checker printed no summary line.
	ErrNoLeakSummary = errors.New("build: leak checker printed no summary")
)
