package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/pubscope/pubscope/internal/secrets"
)

// ErrInvalidConfig reports a non-finite or out-of-range analysis
// parameter. Configuration errors abort the run before any analysis
// output is produced.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
	Secrets  secrets.Config `mapstructure:"secrets"`
}

// AnalysisConfig carries the engine's tunable parameters.
type AnalysisConfig struct {
	// Tau caps any single metric's extremity contribution.
	Tau float64 `mapstructure:"tau"`

	// Lambda weights the extremity sum against the pattern score.
	Lambda float64 `mapstructure:"lambda"`

	// MinLCPLength is the minimum qualifying topic-name prefix length
	// for category derivation.
	MinLCPLength int `mapstructure:"min_lcp_length"`

	// TopK is the ranking truncation length per entity kind.
	TopK int `mapstructure:"top_k"`
}

// GraphConfig configures the optional Neo4j graph source/sink.
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TemporalConfig configures the analysis worker.
type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultAnalysis returns the default engine parameters.
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Tau:          0.30,
		Lambda:       0.30,
		MinLCPLength: 3,
		TopK:         10,
	}
}

// Validate checks the analysis parameters. Every parameter must be in
// range: tau and lambda live in (0, 1], so an explicit zero is rejected
// rather than silently rewritten. Defaults come from DefaultAnalysis or
// the Load layer, never from validation.
func (c AnalysisConfig) Validate() error {
	if math.IsNaN(c.Tau) || math.IsInf(c.Tau, 0) || c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("tau %v out of range (0, 1]: %w", c.Tau, ErrInvalidConfig)
	}
	if math.IsNaN(c.Lambda) || math.IsInf(c.Lambda, 0) || c.Lambda <= 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda %v out of range (0, 1]: %w", c.Lambda, ErrInvalidConfig)
	}
	if c.MinLCPLength < 1 {
		return fmt.Errorf("min_lcp_length %d must be positive: %w", c.MinLCPLength, ErrInvalidConfig)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k %d must be positive: %w", c.TopK, ErrInvalidConfig)
	}
	return nil
}

// Load reads configuration from file and environment. Analysis
// parameters absent from both fall back to DefaultAnalysis; present
// ones are taken as written and validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PUBSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultAnalysis()
	v.SetDefault("analysis.tau", def.Tau)
	v.SetDefault("analysis.lambda", def.Lambda)
	v.SetDefault("analysis.min_lcp_length", def.MinLCPLength)
	v.SetDefault("analysis.top_k", def.TopK)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Analysis.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
