package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eunmann/mqom2-manage/internal/config"
	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/build"
	"github.com/eunmann/mqom2-manage/pkg/harness"
	"github.com/eunmann/mqom2-manage/pkg/hostinfo"
	"github.com/eunmann/mqom2-manage/pkg/metrics"
	"github.com/eunmann/mqom2-manage/pkg/params"
	"github.com/eunmann/mqom2-manage/pkg/release"
	"github.com/eunmann/mqom2-manage/pkg/s3fetch"
	"github.com/eunmann/mqom2-manage/pkg/statslog"
	"github.com/eunmann/mqom2-manage/pkg/variant"
)

const filterHelp = `Filters select variants by prefix: "all", "cat1", "cat1_gf16",
"cat1_gf16_fast" or a full label such as "cat1_gf16_fast_r5".`

func (a *app) compileCmd() *cobra.Command {
	var noKAT, noBench bool
	cmd := &cobra.Command{
		Use:   "compile <filter>...",
		Short: "Compile the executables of the selected variants",
		Long:  filterHelp,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := variant.Expand(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(nil)
			if err != nil {
				return err
			}
			targets := compileTargets(noBench, noKAT)
			orch := a.orchestrator(cfg)
			for _, s := range schemes {
				a.printf("[+] %s\n", s.Label())
				if err := orch.Compile(logctx.WithScheme(cmd.Context(), s.Label()), s, targets); err != nil {
					return fmt.Errorf("%s: %w", s.Label(), err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noKAT, "no-kat", false, "skip the kat_gen and kat_check executables")
	cmd.Flags().BoolVar(&noBench, "no-bench", false, "skip the bench executable")
	return cmd
}

func compileTargets(noBench, noKAT bool) []build.Target {
	var targets []build.Target
	if !noBench {
		targets = append(targets, build.TargetBench)
	}
	if !noKAT {
		targets = append(targets, build.TargetKATGen, build.TargetKATCheck)
	}
	return targets
}

func (a *app) envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env <label>",
		Short: "Print the shell line that reproduces a variant's build environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := variant.Lookup(args[0])
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(nil)
			if err != nil {
				return err
			}
			a.printf("%s\n", a.orchestrator(cfg).Env(s))
			return nil
		},
	}
}

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build objects and executables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(nil)
			if err != nil {
				return err
			}
			return a.orchestrator(cfg).Clean(cmd.Context())
		},
	}
}

func (a *app) benchCmd() *cobra.Command {
	var (
		reps        int
		statsDir    string
		parquetPath string
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "bench <filter>...",
		Short: "Benchmark previously compiled variants and log the results",
		Long:  filterHelp + "\n\nInterrupting the run keeps every record written so far.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := variant.Expand(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(func(c *config.Config) {
				if cmd.Flags().Changed("reps") {
					c.Bench.Reps = reps
				}
				if cmd.Flags().Changed("stats-dir") {
					c.Bench.StatsDir = absPath(statsDir)
				}
				if cmd.Flags().Changed("parquet") {
					c.Bench.Parquet = parquetPath
				}
				if cmd.Flags().Changed("metrics-file") {
					c.Bench.MetricsFile = metricsFile
				}
			})
			if err != nil {
				return err
			}
			return a.runBench(cmd.Context(), cfg, schemes)
		},
	}
	cmd.Flags().IntVarP(&reps, "reps", "n", 100, "repetitions per variant")
	cmd.Flags().StringVar(&statsDir, "stats-dir", "stats", "directory receiving the JSON stats log (relative to --root unless given)")
	cmd.Flags().StringVar(&parquetPath, "parquet", "", "also export the records to this Parquet file")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	return cmd
}

func (a *app) runBench(ctx context.Context, cfg config.Config, schemes []variant.Scheme) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	runID := uuid.NewString()
	ctx = logctx.WithRunID(ctx, runID)
	log := logctx.FromContext(ctx)

	stats, err := statslog.Create(cfg.Bench.StatsDir, time.Now())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stats.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	log.Info().Str("stats_file", stats.Path()).Int("schemes", len(schemes)).Msg("benchmark started")

	rec := metrics.NewRecorder()
	h := harness.New(a.orchestrator(cfg), a.out)
	_, err = h.Bench(ctx, schemes, stats, harness.BenchOptions{
		Reps:    cfg.Bench.Reps,
		RunID:   runID,
		Host:    hostinfo.Collect(),
		Observe: rec.Observe,
	})
	if errors.Is(err, context.Canceled) {
		log.Warn().Int("records", stats.Len()).Msg("benchmark interrupted, stats log finalized")
		err = nil
	}
	if err != nil {
		return err
	}

	if err := stats.Close(); err != nil {
		return err
	}
	if cfg.Bench.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.Bench.MetricsFile); err != nil {
			return err
		}
	}
	if cfg.Bench.Parquet != "" {
		recs, err := statslog.ReadRecords(stats.Path())
		if err != nil {
			return err
		}
		if err := statslog.ExportParquet(cfg.Bench.Parquet, recs); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) testCmd() *cobra.Command {
	var (
		reps       int
		compareKAT string
		noValgrind bool
	)
	cmd := &cobra.Command{
		Use:   "test <filter>...",
		Short: "Run the KAT regression sequence over the selected variants",
		Long:  filterHelp,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := variant.Expand(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(func(c *config.Config) {
				if cmd.Flags().Changed("reps") {
					c.Test.Reps = reps
				}
				if cmd.Flags().Changed("compare-kat") {
					c.Test.CompareKAT = compareKAT
				}
				if noValgrind {
					c.Test.LeakCheck = false
				}
			})
			if err != nil {
				return err
			}
			return a.runTest(cmd.Context(), cfg, schemes)
		},
	}
	cmd.Flags().IntVarP(&reps, "reps", "n", 10, "bench repetitions per variant")
	cmd.Flags().StringVar(&compareKAT, "compare-kat", "", "reference KAT archive (local ZIP or s3:// URI)")
	cmd.Flags().BoolVar(&noValgrind, "no-valgrind", false, "skip the leak check")
	return cmd
}

func (a *app) runTest(ctx context.Context, cfg config.Config, schemes []variant.Scheme) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx = logctx.WithRunID(ctx, uuid.NewString())

	opts := harness.TestOptions{Reps: cfg.Test.Reps, LeakCheck: cfg.Test.LeakCheck}
	if cfg.Test.CompareKAT != "" {
		ref, err := a.openReference(ctx, cfg.Test.CompareKAT)
		if err != nil {
			return err
		}
		defer ref.Close()
		opts.Reference = ref
	}

	_, err := harness.New(a.orchestrator(cfg), a.out).TestAll(ctx, schemes, opts)
	return err
}

// openReference opens the archive before any variant is processed so a bad
// archive fails fast.
func (a *app) openReference(ctx context.Context, src string) (*harness.Reference, error) {
	fetch := a.fetch
	if fetch == nil && s3fetch.IsS3URI(src) {
		client, err := s3fetch.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", harness.ErrArchive, src, err)
		}
		fetch = client
	}
	return harness.OpenReference(ctx, src, fetch)
}

func (a *app) releaseCmd() *cobra.Command {
	var (
		out      string
		link     string
		profile  string
		verify   bool
		noVerify bool
	)
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Materialize the per-variant release tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(func(c *config.Config) {
				if cmd.Flags().Changed("out") {
					c.Release.Out = absPath(out)
				}
				if cmd.Flags().Changed("link") {
					c.Release.LinkMode = link
				}
				if cmd.Flags().Changed("profile") {
					c.Release.Profile = profile
				}
				if verify {
					c.Release.Verify = true
				}
				if noVerify {
					c.Release.Verify = false
				}
			})
			if err != nil {
				return err
			}
			return a.runRelease(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&out, "out", "release_mupq", "release root, destroyed and recreated")
	cmd.Flags().StringVar(&link, "link", "auto", "shared file mode: auto, symlink or copy")
	cmd.Flags().StringVar(&profile, "profile", "", "YAML tuning profile for parameters.h")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the tree after materializing it")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip verification even if the config enables it")
	return cmd
}

// absPath anchors a command-line path at the working directory so that
// config.Resolve leaves it alone.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (a *app) runRelease(ctx context.Context, cfg config.Config) error {
	mode, err := release.ParseLinkMode(cfg.Release.LinkMode)
	if err != nil {
		return err
	}
	opts := release.Options{Source: cfg.Root, Out: cfg.Release.Out, LinkMode: mode}
	if cfg.Release.Profile != "" {
		p, err := params.LoadProfile(cfg.Release.Profile)
		if err != nil {
			return err
		}
		opts.Profile = &p
	}

	res, err := release.Materialize(ctx, opts)
	if err != nil {
		return err
	}
	a.printf("%d instances in %s (%s, canonical %s)\n", len(res.Instances), res.Out, res.LinkMode, release.InstanceName(variant.Canonical))

	if cfg.Release.Verify {
		if err := release.Verify(ctx, res.Out); err != nil {
			return err
		}
		a.printf("verified\n")
	}
	return nil
}
