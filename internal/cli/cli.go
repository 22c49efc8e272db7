// Package cli implements the command-line interface for mqom2-manage.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eunmann/mqom2-manage/internal/config"
	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/build"
	"github.com/eunmann/mqom2-manage/pkg/harness"
	"github.com/eunmann/mqom2-manage/pkg/logging"
)

// ExitError carries a process exit code through the command tree.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// referenceExitCode is returned when the reference KAT archive is unusable
// or disagrees with a generated response file.
const referenceExitCode = -1

// exitCode wraps reference KAT failures so main exits with -1.
func exitCode(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, harness.ErrKATMismatch) || errors.Is(err, harness.ErrArchive) || errors.Is(err, harness.ErrNoKATFolder) {
		return &ExitError{Code: referenceExitCode, Err: err}
	}
	return err
}

// app holds process-wide state shared by every command.
type app struct {
	out    io.Writer
	runner build.Runner
	fetch  harness.Fetcher

	configPath string
	root       string
	debug      bool
	human      bool
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	a := &app{out: os.Stdout}
	return a.execute(context.Background(), args)
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	return exitCode(root.ExecuteContext(ctx))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mqom2-manage",
		Short:         "Build, benchmark, test and package the MQOM2 signature variants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			human := a.human
			if !cmd.Flags().Changed("log-human") {
				human = term.IsTerminal(int(os.Stderr.Fd()))
			}
			logging.Init(a.debug, human)
			logctx.SetDefaultLogger(*logging.L())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.root, "root", "", "implementation root holding the Makefile (overrides "+config.EnvRoot+")")
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file (default $"+config.EnvConfig+")")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&a.human, "log-human", false, "human-readable logs (default when stderr is a terminal)")

	root.AddCommand(
		a.compileCmd(),
		a.envCmd(),
		a.cleanCmd(),
		a.benchCmd(),
		a.testCmd(),
		a.releaseCmd(),
	)
	return root
}

// loadConfig resolves the configuration, applies command-specific overrides
// and validates the result.
func (a *app) loadConfig(override func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if a.root != "" {
		cfg.Root = a.root
	}
	if override != nil {
		override(&cfg)
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) orchestrator(cfg config.Config) *build.Orchestrator {
	return build.New(cfg.Build(), a.runner)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
