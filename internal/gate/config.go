package gate

import "github.com/pubscope/pubscope/internal/pattern"

// Config declares the gate thresholds, usually loaded from the gate
// section of the config file.
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	MaxAnomalies    int    `mapstructure:"max_anomalies" json:"max_anomalies"`
	AnomalySeverity string `mapstructure:"anomaly_severity" json:"anomaly_severity"`

	MaxScore      float64 `mapstructure:"max_score" json:"max_score"`
	ScoreSeverity string  `mapstructure:"score_severity" json:"score_severity"`

	MaxLoops     int    `mapstructure:"max_loops" json:"max_loops"`
	LoopSeverity string `mapstructure:"loop_severity" json:"loop_severity"`

	ForbiddenPatterns []string `mapstructure:"forbidden_patterns" json:"forbidden_patterns"`
	PatternSeverity   string   `mapstructure:"pattern_severity" json:"pattern_severity"`

	MinExpertF1 float64 `mapstructure:"min_expert_f1" json:"min_expert_f1"`
	F1Severity  string  `mapstructure:"f1_severity" json:"f1_severity"`
}

// DefaultConfig allows a handful of anomalies and treats feedback
// loops as required failures.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxAnomalies:    5,
		AnomalySeverity: "required",
		MaxScore:        2.0,
		ScoreSeverity:   "advisory",
		MaxLoops:        0,
		LoopSeverity:    "required",
		PatternSeverity: "critical",
		MinExpertF1:     0.5,
		F1Severity:      "advisory",
	}
}

func parseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline turns a config into a gate pipeline. Forbidden
// patterns run first so a critical hit aborts the cheaper checks.
func BuildPipeline(cfg Config) *Pipeline {
	p := NewPipeline()
	if !cfg.Enabled {
		return p
	}

	if len(cfg.ForbiddenPatterns) > 0 {
		names := make([]pattern.Name, len(cfg.ForbiddenPatterns))
		for i, s := range cfg.ForbiddenPatterns {
			names[i] = pattern.Name(s)
		}
		p.Add(NewForbiddenPatternGate(names, parseSeverity(cfg.PatternSeverity)))
	}
	p.Add(NewAnomalyCountGate(cfg.MaxAnomalies, parseSeverity(cfg.AnomalySeverity)))
	p.Add(NewTopScoreGate(cfg.MaxScore, parseSeverity(cfg.ScoreSeverity)))
	p.Add(NewFeedbackLoopGate(cfg.MaxLoops, parseSeverity(cfg.LoopSeverity)))
	p.Add(NewAgreementGate(cfg.MinExpertF1, parseSeverity(cfg.F1Severity)))
	return p
}
