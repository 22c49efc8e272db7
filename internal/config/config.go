// Package config resolves the tool configuration from defaults, an optional
// YAML file, the environment and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eunmann/mqom2-manage/pkg/build"
)

// Environment variables read by Load.
const (
	EnvConfig = "MQOM2_CONFIG"
	EnvRoot   = "MQOM2_ROOT"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved tool configuration. Relative paths are resolved
// against Root by Resolve.
type Config struct {
	// Root holds the Makefile and the implementation sources.
	Root        string   `yaml:"root" validate:"required"`
	BuildDir    string   `yaml:"build_dir"`
	KATDir      string   `yaml:"kat_dir"`
	ExtraCFlags string   `yaml:"extra_cflags"`
	Make        string   `yaml:"make" validate:"required"`
	LeakChecker string   `yaml:"leak_checker" validate:"required"`
	LeakArgs    []string `yaml:"leak_args"`

	Bench   BenchConfig   `yaml:"bench"`
	Test    TestConfig    `yaml:"test"`
	Release ReleaseConfig `yaml:"release"`
}

// BenchConfig holds bench command defaults.
type BenchConfig struct {
	Reps        int    `yaml:"reps" validate:"gte=1"`
	StatsDir    string `yaml:"stats_dir" validate:"required"`
	Parquet     string `yaml:"parquet"`
	MetricsFile string `yaml:"metrics_file"`
}

// TestConfig holds test command defaults.
type TestConfig struct {
	Reps       int    `yaml:"reps" validate:"gte=1"`
	CompareKAT string `yaml:"compare_kat"`
	LeakCheck  bool   `yaml:"leak_check"`
}

// ReleaseConfig holds release command defaults.
type ReleaseConfig struct {
	Out      string `yaml:"out" validate:"required"`
	LinkMode string `yaml:"link_mode" validate:"oneof=auto symlink copy"`
	Profile  string `yaml:"profile"`
	Verify   bool   `yaml:"verify"`
}

// Default returns the built-in configuration rooted at the current directory.
func Default() Config {
	return Config{
		Root:        ".",
		BuildDir:    "build",
		KATDir:      ".",
		Make:        "make",
		LeakChecker: "valgrind",
		LeakArgs:    []string{"--leak-check=yes"},
		Bench: BenchConfig{
			Reps:     100,
			StatsDir: "stats",
		},
		Test: TestConfig{
			Reps:      10,
			LeakCheck: true,
		},
		Release: ReleaseConfig{
			Out:      "release_mupq",
			LinkMode: "auto",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (or
// $MQOM2_CONFIG when path is empty) and then the environment. A missing
// file is an error only when it was named explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	if v, ok := os.LookupEnv(EnvRoot); ok && v != "" {
		c.Root = v
	}
	if v, ok := os.LookupEnv(build.EnvExtraCFlags); ok {
		c.ExtraCFlags = v
	}
}

// Resolve anchors relative directories at Root.
func (c *Config) Resolve() {
	c.BuildDir = c.under(c.BuildDir)
	c.KATDir = c.under(c.KATDir)
	c.Bench.StatsDir = c.under(c.Bench.StatsDir)
	c.Release.Out = c.under(c.Release.Out)
}

func (c *Config) under(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, f.Namespace(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Build returns the orchestrator configuration.
func (c *Config) Build() build.Config {
	return build.Config{
		Root:          c.Root,
		BuildDir:      c.BuildDir,
		KATDir:        c.KATDir,
		BaseCFlags:    c.ExtraCFlags,
		Make:          c.Make,
		LeakChecker:   c.LeakChecker,
		LeakCheckArgs: c.LeakArgs,
	}
}
