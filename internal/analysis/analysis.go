// Package analysis runs the full anomaly analysis pipeline over one
// dataset: graph construction, category derivation, metric tables,
// quartile classification, pattern evaluation, scoring, ranking, and
// cycle detection. The Result it produces is the single artifact every
// reporter, workflow, and UI consumes.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubscope/pubscope/internal/category"
	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/cycles"
	"github.com/pubscope/pubscope/internal/loader"
	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/observability"
	"github.com/pubscope/pubscope/internal/pattern"
	"github.com/pubscope/pubscope/internal/quartile"
	"github.com/pubscope/pubscope/internal/rank"
	"github.com/pubscope/pubscope/internal/score"
)

// Row is one ranked entity with its full breakdown.
type Row struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Score        float64                    `json:"score"`
	PatternScore float64                    `json:"pattern_score"`
	UniScore     float64                    `json:"uni_score"`
	Patterns     []pattern.Name             `json:"patterns,omitempty"`
	Metrics      map[metrics.Metric]float64 `json:"metrics"`
}

// KindResult bundles one entity kind's complete analysis output.
type KindResult struct {
	Kind model.Kind `json:"kind"`

	// Ranking is the full ordering, Score descending, id ascending on
	// ties. Top is its TopK truncation.
	Ranking []Row `json:"ranking"`
	Top     []Row `json:"top"`

	Summaries   map[metrics.Metric]quartile.Summary `json:"summaries"`
	TriggerSets map[pattern.Name][]string           `json:"trigger_sets,omitempty"`
}

// StageTiming records one pipeline stage's wall time.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ms"`
}

// Result is the complete output of one analysis run.
type Result struct {
	Dataset    string        `json:"dataset"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ms"`

	Params config.AnalysisConfig `json:"params"`

	Kinds      map[model.Kind]KindResult `json:"kinds"`
	Categories map[string]string         `json:"categories"`
	Cycles     cycles.Report             `json:"cycles"`
	Stats      Statistics                `json:"statistics"`

	Stages []StageTiming `json:"stages"`
}

// Anomalies counts entities with a positive score across all kinds.
func (r *Result) Anomalies() int {
	n := 0
	for _, kr := range r.Kinds {
		for _, row := range kr.Ranking {
			if row.Score > 0 {
				n++
			}
		}
	}
	return n
}

// Run executes the pipeline. The analysis parameters are validated up
// front and taken as written; callers wanting the defaults pass
// config.DefaultAnalysis().
func Run(ctx context.Context, ds *loader.Dataset, cfg config.AnalysisConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Dataset:   ds.Name,
		StartedAt: time.Now(),
		Params:    cfg,
		Kinds:     make(map[model.Kind]KindResult, 4),
	}

	var g *model.Graph
	err := res.stage(ctx, "graph", func(ctx context.Context) (int, error) {
		var err error
		g, err = model.Build(ds.Input())
		if err != nil {
			return 0, fmt.Errorf("building graph: %w", err)
		}
		return len(g.Applications()) + len(g.Topics()) + len(g.Nodes()) + len(g.Libraries()), nil
	})
	if err != nil {
		return nil, err
	}

	err = res.stage(ctx, "categories", func(ctx context.Context) (int, error) {
		extractor := category.PairwiseLCP{MinLength: cfg.MinLCPLength}
		res.Categories = extractor.Categories(g.TopicNames())
		return len(res.Categories), nil
	})
	if err != nil {
		return nil, err
	}

	var tables map[model.Kind]metrics.Table
	err = res.stage(ctx, "metrics", func(ctx context.Context) (int, error) {
		tables = metrics.Compute(g, res.Categories)
		return len(tables), nil
	})
	if err != nil {
		return nil, err
	}

	params := &score.Params{Tau: cfg.Tau, Lambda: cfg.Lambda}
	err = res.stage(ctx, "evaluate", func(ctx context.Context) (int, error) {
		rows := 0
		for _, kind := range []model.Kind{
			model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
		} {
			res.Kinds[kind] = evaluateKind(g, kind, tables[kind], params, cfg.TopK)
			rows += len(tables[kind])
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	err = res.stage(ctx, "cycles", func(ctx context.Context) (int, error) {
		res.Cycles = cycles.Detect(g)
		return len(res.Cycles.SelfLoops) + len(res.Cycles.PairLoops), nil
	})
	if err != nil {
		return nil, err
	}

	err = res.stage(ctx, "statistics", func(ctx context.Context) (int, error) {
		res.Stats = Summarize(g)
		return res.Stats.Applications, nil
	})
	if err != nil {
		return nil, err
	}

	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)

	slog.Info("analysis complete",
		"dataset", res.Dataset,
		"duration", res.Duration,
		"anomalies", res.Anomalies(),
	)
	return res, nil
}

// evaluateKind runs classification, patterns, scoring, and ranking for
// one entity kind. Each kind's quartile context is private to the kind.
func evaluateKind(g *model.Graph, kind model.Kind, table metrics.Table, params *score.Params, topK int) KindResult {
	qctx := quartile.NewContext(table, metrics.ForKind(kind))
	pats := pattern.Evaluate(kind, table, qctx)
	entries := score.Compute(kind, table, qctx, pats, params)

	ordered := rank.Order(entries)
	rows := make([]Row, len(ordered))
	for i, e := range ordered {
		rows[i] = Row{
			ID:           e.ID,
			Name:         g.EntityName(kind, e.ID),
			Score:        e.Score,
			PatternScore: e.PatternScore,
			UniScore:     e.UniScore,
			Patterns:     e.Patterns,
			Metrics:      table[e.ID],
		}
	}

	top := len(rank.TopK(ordered, topK))
	return KindResult{
		Kind:        kind,
		Ranking:     rows,
		Top:         rows[:top],
		Summaries:   qctx.Summaries,
		TriggerSets: pats.Sets,
	}
}

// stage times one pipeline stage, recording its span and timing. Stage
// errors abort the run; the span still records them.
func (r *Result) stage(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	ctx, span := observability.StartStageSpan(ctx, name)
	start := time.Now()

	n, err := fn(ctx)

	observability.RecordStageResult(span, n, start, err)
	r.Stages = append(r.Stages, StageTiming{Stage: name, Duration: time.Since(start)})

	if err != nil {
		slog.Error("analysis stage failed", "stage", name, "error", err)
		return err
	}
	slog.Debug("analysis stage done", "stage", name, "entities", n, "duration", time.Since(start))
	return nil
}
