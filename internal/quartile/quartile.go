// Package quartile derives system-relative high/low classification from
// metric value distributions. Thresholds are always quartiles of the
// current population, never absolute cutoffs, and never shared across
// entity kinds or systems.
package quartile

import (
	"sort"

	"github.com/pubscope/pubscope/internal/metrics"
)

// Summary is the five-number summary of one metric's population.
type Summary struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`

	// Degenerate marks populations with fewer than four values, too
	// small for quartiles to mean anything. A degenerate summary
	// classifies nothing: High and Low are false for every value. This
	// is the documented small-population fallback, not an error.
	Degenerate bool `json:"degenerate,omitempty"`
}

// Summarize computes the five-number summary with linear percentile
// interpolation over the full population of one metric.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{Degenerate: true}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Min:        sorted[0],
		Q1:         percentile(sorted, 0.25),
		Median:     percentile(sorted, 0.50),
		Q3:         percentile(sorted, 0.75),
		Max:        sorted[len(sorted)-1],
		Degenerate: len(sorted) < 4,
	}
}

// percentile interpolates linearly between the two nearest ranks.
// The input must already be sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// High reports whether v sits strictly above Q3.
func (s Summary) High(v float64) bool {
	if s.Degenerate {
		return false
	}
	return v > s.Q3
}

// Low reports whether v sits strictly below Q1.
func (s Summary) Low(v float64) bool {
	if s.Degenerate {
		return false
	}
	return v < s.Q1
}

// Context is the immutable per-kind classification context built once
// per analysis run and passed by value into pattern evaluation and
// scoring. It must never be reused for another entity kind or system.
type Context struct {
	Summaries map[metrics.Metric]Summary
}

// NewContext summarizes every metric of one table.
func NewContext(table metrics.Table, order []metrics.Metric) Context {
	summaries := make(map[metrics.Metric]Summary, len(order))
	for _, m := range order {
		summaries[m] = Summarize(table.Values(m))
	}
	return Context{Summaries: summaries}
}

// High reports whether the value is classified high for the metric.
func (c Context) High(m metrics.Metric, v float64) bool {
	return c.Summaries[m].High(v)
}

// Low reports whether the value is classified low for the metric.
func (c Context) Low(m metrics.Metric, v float64) bool {
	return c.Summaries[m].Low(v)
}
