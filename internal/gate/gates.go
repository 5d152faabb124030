package gate

import (
	"fmt"
	"sort"

	"github.com/pubscope/pubscope/internal/pattern"
)

// AnomalyCountGate fails when the run flags more anomalous entities
// than the limit allows.
type AnomalyCountGate struct {
	MaxAnomalies int
	severity     Severity
}

func NewAnomalyCountGate(max int, severity Severity) *AnomalyCountGate {
	return &AnomalyCountGate{MaxAnomalies: max, severity: severity}
}

func (g *AnomalyCountGate) Name() string       { return "anomaly_count" }
func (g *AnomalyCountGate) Severity() Severity { return g.severity }

func (g *AnomalyCountGate) Evaluate(ctx *EvalContext) (*Result, error) {
	n := ctx.Result.Anomalies()
	r := &Result{
		Name:      g.Name(),
		Severity:  g.severity,
		Value:     float64(n),
		Threshold: float64(g.MaxAnomalies),
	}
	if n <= g.MaxAnomalies {
		r.Status = Passed
		r.Message = fmt.Sprintf("%d anomalies within limit %d", n, g.MaxAnomalies)
	} else {
		r.Status = Failed
		r.Message = fmt.Sprintf("%d anomalies exceed limit %d", n, g.MaxAnomalies)
	}
	return r, nil
}

// TopScoreGate fails when any entity's anomaly score exceeds the limit.
type TopScoreGate struct {
	MaxScore float64
	severity Severity
}

func NewTopScoreGate(max float64, severity Severity) *TopScoreGate {
	return &TopScoreGate{MaxScore: max, severity: severity}
}

func (g *TopScoreGate) Name() string       { return "top_score" }
func (g *TopScoreGate) Severity() Severity { return g.severity }

func (g *TopScoreGate) Evaluate(ctx *EvalContext) (*Result, error) {
	var top float64
	var topName string
	for _, kr := range ctx.Result.Kinds {
		for _, row := range kr.Ranking {
			if row.Score > top {
				top = row.Score
				topName = row.Name
			}
		}
	}

	r := &Result{
		Name:      g.Name(),
		Severity:  g.severity,
		Value:     top,
		Threshold: g.MaxScore,
	}
	if top <= g.MaxScore {
		r.Status = Passed
		r.Message = fmt.Sprintf("top score %.2f within limit %.2f", top, g.MaxScore)
	} else {
		r.Status = Failed
		r.Message = fmt.Sprintf("%s scored %.2f, over limit %.2f", topName, top, g.MaxScore)
	}
	return r, nil
}

// FeedbackLoopGate fails when the topology has more feedback loops
// (self-publishing apps plus two-topic cycles) than allowed.
type FeedbackLoopGate struct {
	MaxLoops int
	severity Severity
}

func NewFeedbackLoopGate(max int, severity Severity) *FeedbackLoopGate {
	return &FeedbackLoopGate{MaxLoops: max, severity: severity}
}

func (g *FeedbackLoopGate) Name() string       { return "feedback_loops" }
func (g *FeedbackLoopGate) Severity() Severity { return g.severity }

func (g *FeedbackLoopGate) Evaluate(ctx *EvalContext) (*Result, error) {
	cyc := ctx.Result.Cycles
	n := len(cyc.SelfLoops) + len(cyc.PairLoops)

	r := &Result{
		Name:      g.Name(),
		Severity:  g.severity,
		Value:     float64(n),
		Threshold: float64(g.MaxLoops),
	}
	if n <= g.MaxLoops {
		r.Status = Passed
		r.Message = fmt.Sprintf("%d feedback loops within limit %d", n, g.MaxLoops)
		return r, nil
	}

	r.Status = Failed
	r.Message = fmt.Sprintf("%d feedback loops exceed limit %d", n, g.MaxLoops)
	for _, sl := range cyc.SelfLoops {
		r.Details = append(r.Details, fmt.Sprintf("self loop: %s via %s", sl.App, sl.Topic))
	}
	for _, pl := range cyc.PairLoops {
		r.Details = append(r.Details, fmt.Sprintf("pair loop: %s <-> %s", pl.AppA, pl.AppB))
	}
	return r, nil
}

// ForbiddenPatternGate fails when any of the named patterns triggered.
type ForbiddenPatternGate struct {
	Patterns []pattern.Name
	severity Severity
}

func NewForbiddenPatternGate(patterns []pattern.Name, severity Severity) *ForbiddenPatternGate {
	return &ForbiddenPatternGate{Patterns: patterns, severity: severity}
}

func (g *ForbiddenPatternGate) Name() string       { return "forbidden_patterns" }
func (g *ForbiddenPatternGate) Severity() Severity { return g.severity }

func (g *ForbiddenPatternGate) Evaluate(ctx *EvalContext) (*Result, error) {
	r := &Result{Name: g.Name(), Severity: g.severity}
	if len(g.Patterns) == 0 {
		r.Status = Skipped
		r.Message = "no forbidden patterns configured"
		return r, nil
	}

	forbidden := make(map[pattern.Name]bool, len(g.Patterns))
	for _, p := range g.Patterns {
		forbidden[p] = true
	}

	var hits []string
	for _, kr := range ctx.Result.Kinds {
		for _, row := range kr.Ranking {
			for _, p := range row.Patterns {
				if forbidden[p] {
					hits = append(hits, fmt.Sprintf("%s: %s", p, row.Name))
				}
			}
		}
	}
	sort.Strings(hits)

	r.Value = float64(len(hits))
	if len(hits) == 0 {
		r.Status = Passed
		r.Message = "no forbidden patterns triggered"
	} else {
		r.Status = Failed
		r.Message = fmt.Sprintf("%d forbidden pattern hits", len(hits))
		r.Details = hits
	}
	return r, nil
}

// AgreementGate fails when expert agreement falls below a minimum
// average F1. Skipped when no comparison was run.
type AgreementGate struct {
	MinF1    float64
	severity Severity
}

func NewAgreementGate(minF1 float64, severity Severity) *AgreementGate {
	return &AgreementGate{MinF1: minF1, severity: severity}
}

func (g *AgreementGate) Name() string       { return "expert_agreement" }
func (g *AgreementGate) Severity() Severity { return g.severity }

func (g *AgreementGate) Evaluate(ctx *EvalContext) (*Result, error) {
	r := &Result{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MinF1,
	}
	if ctx.Comparison == nil {
		r.Status = Skipped
		r.Message = "no expert baseline supplied"
		return r, nil
	}

	r.Value = ctx.Comparison.AvgF1
	if ctx.Comparison.AvgF1 >= g.MinF1 {
		r.Status = Passed
		r.Message = fmt.Sprintf("average F1 %.2f meets minimum %.2f (%s agreement)",
			ctx.Comparison.AvgF1, g.MinF1, ctx.Comparison.Agreement)
	} else {
		r.Status = Failed
		r.Message = fmt.Sprintf("average F1 %.2f below minimum %.2f (%s agreement)",
			ctx.Comparison.AvgF1, g.MinF1, ctx.Comparison.Agreement)
	}
	return r, nil
}
