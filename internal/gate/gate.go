// Package gate evaluates analysis results against configurable health
// thresholds so CI pipelines can fail a build when a topology degrades.
package gate

import (
	"fmt"
	"time"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/compare"
)

// Status is the outcome of a gate check.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// Severity determines what a gate failure does to the pipeline.
type Severity string

const (
	// SeverityCritical aborts the pipeline, skipping later gates.
	SeverityCritical Severity = "critical"
	// SeverityRequired fails the pipeline but lets later gates run.
	SeverityRequired Severity = "required"
	// SeverityAdvisory records the failure without affecting status.
	SeverityAdvisory Severity = "advisory"
)

// Result captures a single gate evaluation.
type Result struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Severity    Severity      `json:"severity"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is one health check over an analysis result.
type Gate interface {
	Name() string
	Severity() Severity
	Evaluate(ctx *EvalContext) (*Result, error)
}

// EvalContext carries the inputs gates inspect. Comparison is nil when
// no expert baseline was supplied.
type EvalContext struct {
	Result     *analysis.Result
	Comparison *compare.Report
}

// PipelineResult is the aggregate outcome of all gates.
type PipelineResult struct {
	Status       Status        `json:"status"`
	Gates        []Result      `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Pipeline runs gates in order.
type Pipeline struct {
	gates []Gate
}

// NewPipeline builds a pipeline from the given gates.
func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// Add appends a gate.
func (p *Pipeline) Add(g Gate) {
	p.gates = append(p.gates, g)
}

// Run evaluates every gate. A critical failure skips the remaining
// gates; a required failure fails the pipeline but keeps evaluating.
func (p *Pipeline) Run(ctx *EvalContext) *PipelineResult {
	start := time.Now()
	out := &PipelineResult{Status: Passed, EvaluatedAt: start}

	aborted := false
	for _, g := range p.gates {
		if aborted {
			out.Gates = append(out.Gates, Result{
				Name:        g.Name(),
				Status:      Skipped,
				Severity:    g.Severity(),
				Message:     "skipped after critical gate failure",
				EvaluatedAt: time.Now(),
			})
			out.SkippedCount++
			continue
		}

		gateStart := time.Now()
		r, err := g.Evaluate(ctx)
		if err != nil {
			r = &Result{
				Name:     g.Name(),
				Status:   Failed,
				Severity: g.Severity(),
				Message:  fmt.Sprintf("gate evaluation error: %v", err),
			}
		}
		r.Duration = time.Since(gateStart)
		r.EvaluatedAt = gateStart
		out.Gates = append(out.Gates, *r)

		switch r.Status {
		case Passed:
			out.PassedCount++
		case Failed:
			out.FailedCount++
			switch r.Severity {
			case SeverityCritical:
				aborted = true
				out.Status = Failed
			case SeverityRequired:
				out.Status = Failed
			}
		case Skipped:
			out.SkippedCount++
		}
	}

	out.Duration = time.Since(start)
	out.Summary = fmt.Sprintf("gates: %d passed, %d failed, %d skipped [%s]",
		out.PassedCount, out.FailedCount, out.SkippedCount, out.Status)
	return out
}
