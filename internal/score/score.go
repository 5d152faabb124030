// Package score combines pattern membership and bounded single-metric
// extremity into one comparable anomaly score per entity.
package score

import (
	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
	"github.com/pubscope/pubscope/internal/quartile"
)

// Params are the scoring weights. Tau caps any single metric's
// extremity contribution; Lambda weights the extremity sum against the
// pattern score. Together they keep one extreme metric from outranking
// entities triggering several cross-metric patterns.
type Params struct {
	// Tau bounds each metric's extremity contribution (default 0.30).
	Tau float64

	// Lambda weights the extremity sum in the final score (default 0.30).
	Lambda float64
}

// DefaultParams returns the default scoring weights.
func DefaultParams() *Params {
	return &Params{Tau: 0.30, Lambda: 0.30}
}

// Entry is one entity's scoring breakdown.
type Entry struct {
	ID string `json:"id"`

	// Score = PatternScore + Lambda * UniScore.
	Score float64 `json:"score"`

	// PatternScore is the rarity-weighted pattern sum: each triggered
	// pattern contributes the reciprocal of its trigger-set size.
	PatternScore float64 `json:"pattern_score"`

	// UniScore is the bounded per-metric extremity sum.
	UniScore float64 `json:"uni_score"`

	// Patterns lists the triggered pattern names in rule table order.
	Patterns []pattern.Name `json:"patterns,omitempty"`
}

// Compute scores every entity of one kind. The classification context
// and pattern result must come from the same run over the same table.
func Compute(kind model.Kind, table metrics.Table, ctx quartile.Context, pats pattern.Result, params *Params) map[string]Entry {
	if params == nil {
		params = DefaultParams()
	}

	entries := make(map[string]Entry, len(table))
	for id, row := range table {
		e := Entry{ID: id, Patterns: pats.Triggered[id]}

		// Rarer patterns weigh more. The trigger set contains at least
		// this entity, so the denominator is never zero.
		for _, name := range e.Patterns {
			e.PatternScore += 1.0 / float64(len(pats.Sets[name]))
		}

		for _, m := range metrics.ForKind(kind) {
			e.UniScore += capped(row[m], ctx.Summaries[m], params.Tau)
		}

		e.Score = e.PatternScore + params.Lambda*e.UniScore
		entries[id] = e
	}
	return entries
}

// capped is c_M: the extremity of v above Q3, normalized into [0, 1] by
// the Q3..max span and bounded by tau. Degenerate distributions and
// distributions with max = Q3 contribute nothing.
func capped(v float64, s quartile.Summary, tau float64) float64 {
	if s.Degenerate || s.Max == s.Q3 || v <= s.Q3 {
		return 0
	}
	u := (v - s.Q3) / (s.Max - s.Q3)
	if u > tau {
		return tau
	}
	return u
}
