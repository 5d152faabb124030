package score

import (
	"math"
	"testing"

	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
	"github.com/pubscope/pubscope/internal/quartile"
)

func nodeFixture() (metrics.Table, quartile.Context, pattern.Result) {
	table := metrics.Table{
		"N0": {metrics.NodeDensity: 10, metrics.InteractionDensity: 8},
		"N1": {metrics.NodeDensity: 1, metrics.InteractionDensity: 0},
		"N2": {metrics.NodeDensity: 2, metrics.InteractionDensity: 1},
		"N3": {metrics.NodeDensity: 3, metrics.InteractionDensity: 2},
		"N4": {metrics.NodeDensity: 4, metrics.InteractionDensity: 3},
	}
	ctx := quartile.NewContext(table, metrics.ForKind(model.KindNode))
	pats := pattern.Evaluate(model.KindNode, table, ctx)
	return table, ctx, pats
}

func TestCompute_PatternRarityWeight(t *testing.T) {
	table, ctx, pats := nodeFixture()
	entries := Compute(model.KindNode, table, ctx, pats, nil)

	// Only N0 triggers IH, so its pattern score is 1/1.
	if got := entries["N0"].PatternScore; got != 1.0 {
		t.Errorf("PatternScore(N0) = %v, want 1.0", got)
	}
	if got := entries["N1"].PatternScore; got != 0 {
		t.Errorf("PatternScore(N1) = %v, want 0", got)
	}
}

func TestCompute_UniBounded(t *testing.T) {
	table, ctx, pats := nodeFixture()
	params := DefaultParams()
	entries := Compute(model.KindNode, table, ctx, pats, params)

	// N0 is the maximum of both node metrics, so each contributes the
	// full cap: UNI = 2 * tau.
	want := 2 * params.Tau
	if got := entries["N0"].UniScore; math.Abs(got-want) > 1e-12 {
		t.Errorf("UniScore(N0) = %v, want %v", got, want)
	}

	for id, e := range entries {
		if e.UniScore < 0 || e.PatternScore < 0 {
			t.Errorf("%s: negative score component %+v", id, e)
		}
		perMetricCap := float64(len(metrics.ForKind(model.KindNode))) * params.Tau
		if e.UniScore > perMetricCap+1e-12 {
			t.Errorf("UniScore(%s) = %v exceeds %v", id, e.UniScore, perMetricCap)
		}
	}
}

func TestCompute_ScoreComposition(t *testing.T) {
	table, ctx, pats := nodeFixture()
	params := &Params{Tau: 0.5, Lambda: 0.1}
	entries := Compute(model.KindNode, table, ctx, pats, params)

	for id, e := range entries {
		want := e.PatternScore + params.Lambda*e.UniScore
		if math.Abs(e.Score-want) > 1e-12 {
			t.Errorf("Score(%s) = %v, want PatternScore + lambda*UNI = %v", id, e.Score, want)
		}
	}
}

func TestCompute_DegenerateDistributionContributesNothing(t *testing.T) {
	table := metrics.Table{
		"N0": {metrics.NodeDensity: 5, metrics.InteractionDensity: 0},
		"N1": {metrics.NodeDensity: 5, metrics.InteractionDensity: 0},
		"N2": {metrics.NodeDensity: 5, metrics.InteractionDensity: 0},
	}
	ctx := quartile.NewContext(table, metrics.ForKind(model.KindNode))
	pats := pattern.Evaluate(model.KindNode, table, ctx)
	for id, e := range Compute(model.KindNode, table, ctx, pats, nil) {
		if e.Score != 0 {
			t.Errorf("Score(%s) = %v, want 0 for degenerate populations", id, e.Score)
		}
	}
}

// A single extreme metric must not outrank an entity triggering several
// patterns: UNI is capped per metric and down-weighted by lambda.
func TestCompute_SingleMetricCannotDominate(t *testing.T) {
	table := metrics.Table{
		// A0: extreme RA only (pure publisher into dead topics).
		"A0": {metrics.Reach: 0, metrics.Amplification: 0, metrics.RoleAsymmetry: 0.85, metrics.ContextDiversity: 1, metrics.LibraryExposure: 1},
		// A1: moderately high on everything, triggering several patterns.
		"A1": {metrics.Reach: 6, metrics.Amplification: 3, metrics.RoleAsymmetry: 0.5, metrics.ContextDiversity: 4, metrics.LibraryExposure: 5},
		"A2": {metrics.Reach: 1, metrics.Amplification: 0.5, metrics.RoleAsymmetry: 0, metrics.ContextDiversity: 1, metrics.LibraryExposure: 2},
		"A3": {metrics.Reach: 2, metrics.Amplification: 1, metrics.RoleAsymmetry: -0.2, metrics.ContextDiversity: 2, metrics.LibraryExposure: 3},
		"A4": {metrics.Reach: 3, metrics.Amplification: 1.5, metrics.RoleAsymmetry: 0.1, metrics.ContextDiversity: 3, metrics.LibraryExposure: 4},
	}
	ctx := quartile.NewContext(table, metrics.ForKind(model.KindApplication))
	pats := pattern.Evaluate(model.KindApplication, table, ctx)
	entries := Compute(model.KindApplication, table, ctx, pats, nil)

	if entries["A0"].Score >= entries["A1"].Score {
		t.Errorf("single-metric outlier A0 (%.3f) must score below multi-pattern A1 (%.3f)",
			entries["A0"].Score, entries["A1"].Score)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	table, ctx, pats := nodeFixture()
	first := Compute(model.KindNode, table, ctx, pats, nil)
	for i := 0; i < 10; i++ {
		again := Compute(model.KindNode, table, ctx, pats, nil)
		for id := range first {
			if first[id].Score != again[id].Score {
				t.Fatalf("run %d: Score(%s) changed", i, id)
			}
		}
	}
}
