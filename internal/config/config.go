// Package config loads user settings from .pragcc.yml.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in a project directory.
const FileName = ".pragcc.yml"

// Config holds user-overridable settings. Unset fields fall back to the
// defaults of the Effective* getters.
type Config struct {
	// Target is the directive set used when none is given: mp or acc.
	Target string `yaml:"target"`

	// Spec is the parallel file used when a source has no sibling
	// <stem>.yml or parallel.yml.
	Spec string `yaml:"spec"`

	// OutputPrefix maps a target to the prefix of annotated files.
	OutputPrefix map[string]string `yaml:"output_prefix"`

	// Workers bounds concurrent annotations in batch mode.
	Workers *int `yaml:"workers"`

	// Verify re-parses annotated output before writing it.
	Verify *bool `yaml:"verify"`

	// Incremental skips files whose source and parallel file are unchanged
	// since the last successful run.
	Incremental *bool `yaml:"incremental"`

	// DBPath is the run database. Default: ~/.cache/pragcc/runs.db.
	DBPath string `yaml:"db_path"`

	// ExcludeDirs are added to the built-in ignored directories.
	ExcludeDirs []string `yaml:"exclude_dirs"`

	Log   LogConfig   `yaml:"log"`
	Watch WatchConfig `yaml:"watch"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WatchConfig bounds the adaptive poll interval.
type WatchConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

var defaultOutputPrefix = map[string]string{
	"mp":  "omp_",
	"acc": "acc_",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig reads .pragcc.yml from dir. A missing or invalid file yields
// the defaults.
func LoadConfig(dir string) *Config {
	cfg := DefaultConfig()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("config.invalid")
		return DefaultConfig()
	}
	return cfg
}

// EffectiveTarget returns the configured default target, or "mp".
func (c *Config) EffectiveTarget() string {
	if c.Target != "" {
		return c.Target
	}
	return "mp"
}

// EffectiveSpec returns the fallback parallel file name.
func (c *Config) EffectiveSpec() string {
	if c.Spec != "" {
		return c.Spec
	}
	return "parallel.yml"
}

// Prefix returns the output prefix for a target.
func (c *Config) Prefix(target string) string {
	if p, ok := c.OutputPrefix[target]; ok && p != "" {
		return p
	}
	return defaultOutputPrefix[target]
}

// Prefixes returns the output prefix of every known target.
func (c *Config) Prefixes() []string {
	return []string{c.Prefix("mp"), c.Prefix("acc")}
}

// EffectiveWorkers returns the configured worker bound, or the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Workers != nil && *c.Workers > 0 {
		return *c.Workers
	}
	return runtime.NumCPU()
}

// EffectiveVerify returns the verify setting (default true).
func (c *Config) EffectiveVerify() bool {
	if c.Verify != nil {
		return *c.Verify
	}
	return true
}

// EffectiveIncremental returns the incremental setting (default true).
func (c *Config) EffectiveIncremental() bool {
	if c.Incremental != nil {
		return *c.Incremental
	}
	return true
}

// EffectiveLogLevel returns the log level (default info).
func (c *Config) EffectiveLogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return "info"
}

// EffectiveLogFormat returns the log format (default auto).
func (c *Config) EffectiveLogFormat() string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return "auto"
}

// EffectiveWatchIntervals returns the poll interval bounds, defaulting to
// one second and one minute.
func (c *Config) EffectiveWatchIntervals() (time.Duration, time.Duration) {
	lo, hi := c.Watch.MinInterval, c.Watch.MaxInterval
	if lo <= 0 {
		lo = time.Second
	}
	if hi <= 0 {
		hi = time.Minute
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
