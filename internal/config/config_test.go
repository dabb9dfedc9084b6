package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefault(t *testing.T) {
	cfg := LoadConfig("/nonexistent/path")
	assert.Equal(t, "mp", cfg.EffectiveTarget())
	assert.Equal(t, "parallel.yml", cfg.EffectiveSpec())
	assert.Equal(t, "omp_", cfg.Prefix("mp"))
	assert.Equal(t, "acc_", cfg.Prefix("acc"))
	assert.Equal(t, runtime.NumCPU(), cfg.EffectiveWorkers())
	assert.True(t, cfg.EffectiveVerify())
	assert.True(t, cfg.EffectiveIncremental())
	assert.Equal(t, "info", cfg.EffectiveLogLevel())
	assert.Equal(t, "auto", cfg.EffectiveLogFormat())
	lo, hi := cfg.EffectiveWatchIntervals()
	assert.Equal(t, time.Second, lo)
	assert.Equal(t, time.Minute, hi)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
target: acc
spec: kernels.yml
output_prefix:
  acc: gpu_
workers: 2
verify: false
incremental: false
exclude_dirs: [third_party]
log:
  level: debug
  format: json
watch:
  min_interval: 250ms
  max_interval: 100ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	cfg := LoadConfig(dir)
	assert.Equal(t, "acc", cfg.EffectiveTarget())
	assert.Equal(t, "kernels.yml", cfg.EffectiveSpec())
	assert.Equal(t, "gpu_", cfg.Prefix("acc"))
	assert.Equal(t, "omp_", cfg.Prefix("mp"))
	assert.Equal(t, []string{"omp_", "gpu_"}, cfg.Prefixes())
	assert.Equal(t, 2, cfg.EffectiveWorkers())
	assert.False(t, cfg.EffectiveVerify())
	assert.False(t, cfg.EffectiveIncremental())
	assert.Equal(t, []string{"third_party"}, cfg.ExcludeDirs)
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
	assert.Equal(t, "json", cfg.EffectiveLogFormat())
	lo, hi := cfg.EffectiveWatchIntervals()
	assert.Equal(t, 250*time.Millisecond, lo)
	assert.Equal(t, lo, hi)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("target: [valid: yaml"), 0o600))
	cfg := LoadConfig(dir)
	assert.Equal(t, "mp", cfg.EffectiveTarget())
}
