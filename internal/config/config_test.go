package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/e2sfca/internal/fca"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, fca.Tiers{
		{Upper: 30, Weight: 1},
		{Upper: 60, Weight: 0.42},
		{Upper: 90, Weight: 0.09},
	}, cfg.Model.Tiers)
	assert.False(t, cfg.Model.ColocatedWeight)
	assert.Equal(t, "haversine", cfg.Model.Metric)
	assert.InDelta(t, 1e-10, cfg.Solver.Tolerance, 1e-15)
	assert.Equal(t, 30, cfg.Solver.TimeoutSecs)
	assert.Equal(t, "maxmin", cfg.Optimize.Strategy)
	assert.InDelta(t, 0.0, cfg.Optimize.Budget, 0.001)
	assert.InDelta(t, 0.2, cfg.Optimize.MaxGrowth, 0.001)
	assert.InDelta(t, 0.0, cfg.Optimize.MaxDecrease, 0.001)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
model:
  tiers:
    - {upper: 15, weight: 1}
    - {upper: 45, weight: 0.3}
  colocated_weight: true
optimize:
  strategy: average
  max_decrease: 0.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, fca.Tiers{{Upper: 15, Weight: 1}, {Upper: 45, Weight: 0.3}}, cfg.Model.Tiers)
	assert.True(t, cfg.Model.ColocatedWeight)
	assert.Equal(t, "average", cfg.Optimize.Strategy)
	assert.InDelta(t, 0.1, cfg.Optimize.MaxDecrease, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.2, cfg.Optimize.MaxGrowth, 0.001)
	assert.Equal(t, 30, cfg.Solver.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
optimize:
  strategy: average
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ACCESS_OPTIMIZE_STRATEGY", "maxmin")
	t.Setenv("ACCESS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "maxmin", cfg.Optimize.Strategy)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ACCESS_SOLVER_TIMEOUT_SECS", "5")
	t.Setenv("ACCESS_OPTIMIZE_BUDGET", "-12.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Solver.TimeoutSecs)
	assert.InDelta(t, -12.5, cfg.Optimize.Budget, 0.001)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [\n"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Model: ModelConfig{
			Tiers:  fca.Tiers{{Upper: 30, Weight: 1}, {Upper: 60, Weight: 0.42}},
			Metric: "haversine",
		},
		Solver:   SolverConfig{Tolerance: 1e-10, TimeoutSecs: 30},
		Optimize: OptimizeConfig{Strategy: "maxmin", MaxGrowth: 0.2},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty tiers", func(c *Config) { c.Model.Tiers = nil }, "model.tiers"},
		{"unsorted tiers", func(c *Config) {
			c.Model.Tiers = fca.Tiers{{Upper: 60, Weight: 1}, {Upper: 30, Weight: 1}}
		}, "model.tiers"},
		{"unknown metric", func(c *Config) { c.Model.Metric = "taxicab" }, "model.metric"},
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }, "solver.tolerance"},
		{"negative timeout", func(c *Config) { c.Solver.TimeoutSecs = -1 }, "solver.timeout_secs"},
		{"unknown strategy", func(c *Config) { c.Optimize.Strategy = "greedy" }, "optimize.strategy"},
		{"growth above one", func(c *Config) { c.Optimize.MaxGrowth = 2 }, "optimize.max_growth"},
		{"negative decrease", func(c *Config) { c.Optimize.MaxDecrease = -0.5 }, "optimize.max_decrease"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
