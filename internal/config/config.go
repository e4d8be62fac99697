package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/geodist"
	"github.com/sells-group/e2sfca/internal/optimize"
)

// Config holds the full application configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Solver   SolverConfig   `yaml:"solver" mapstructure:"solver"`
	Optimize OptimizeConfig `yaml:"optimize" mapstructure:"optimize"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ModelConfig configures the accessibility model.
type ModelConfig struct {
	Tiers           fca.Tiers `yaml:"tiers" mapstructure:"tiers"`
	ColocatedWeight bool      `yaml:"colocated_weight" mapstructure:"colocated_weight"`
	Metric          string    `yaml:"metric" mapstructure:"metric"`
}

// SolverConfig configures the LP solver.
type SolverConfig struct {
	Tolerance   float64 `yaml:"tolerance" mapstructure:"tolerance"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OptimizeConfig holds default optimization parameters.
type OptimizeConfig struct {
	Strategy    string  `yaml:"strategy" mapstructure:"strategy"`
	Budget      float64 `yaml:"budget" mapstructure:"budget"`
	MaxGrowth   float64 `yaml:"max_growth" mapstructure:"max_growth"`
	MaxDecrease float64 `yaml:"max_decrease" mapstructure:"max_decrease"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACCESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("model.tiers", []map[string]any{
		{"upper": 30.0, "weight": 1.0},
		{"upper": 60.0, "weight": 0.42},
		{"upper": 90.0, "weight": 0.09},
	})
	v.SetDefault("model.colocated_weight", false)
	v.SetDefault("model.metric", "haversine")
	v.SetDefault("solver.tolerance", 1e-10)
	v.SetDefault("solver.timeout_secs", 30)
	v.SetDefault("optimize.strategy", "maxmin")
	v.SetDefault("optimize.budget", 0.0)
	v.SetDefault("optimize.max_growth", 0.2)
	v.SetDefault("optimize.max_decrease", 0.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Model.Tiers.Validate(); err != nil {
		return eris.Wrap(err, "config: model.tiers")
	}
	if _, err := geodist.ParseMetric(c.Model.Metric); err != nil {
		return eris.Wrap(err, "config: model.metric")
	}
	if c.Solver.Tolerance <= 0 {
		return eris.Errorf("config: solver.tolerance must be positive (got %g)", c.Solver.Tolerance)
	}
	if c.Solver.TimeoutSecs < 0 {
		return eris.Errorf("config: solver.timeout_secs must be >= 0 (got %d)", c.Solver.TimeoutSecs)
	}
	if _, err := optimize.ParseStrategy(c.Optimize.Strategy); err != nil {
		return eris.Wrap(err, "config: optimize.strategy")
	}
	if c.Optimize.MaxGrowth < 0 || c.Optimize.MaxGrowth > 1 {
		return eris.Errorf("config: optimize.max_growth must be in [0, 1] (got %g)", c.Optimize.MaxGrowth)
	}
	if c.Optimize.MaxDecrease < 0 || c.Optimize.MaxDecrease > 1 {
		return eris.Errorf("config: optimize.max_decrease must be in [0, 1] (got %g)", c.Optimize.MaxDecrease)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
