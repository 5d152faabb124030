package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/compare"
	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/graph"
	"github.com/pubscope/pubscope/internal/loader"
	"github.com/pubscope/pubscope/internal/observability"
	"github.com/pubscope/pubscope/internal/report"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	// Repo is optional; activities needing it fail cleanly when unset.
	Repo graph.Repository

	Analysis config.AnalysisConfig
	Audit    *observability.AuditLogger
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// LoadResult carries a dataset between activities as JSON. Activity
// results must be serializable; the in-memory graph never crosses an
// activity boundary.
type LoadResult struct {
	DatasetJSON string
}

// AnalyzeResult carries the analysis result and its headline numbers.
type AnalyzeResult struct {
	Dataset    string
	Anomalies  int
	ResultJSON string
}

// CompareResult summarizes an expert comparison.
type CompareResult struct {
	AvgF1     float64
	Agreement string
}

// LoadDatasetActivity loads the dataset from file or repository.
func LoadDatasetActivity(ctx context.Context, input AnalysisInput) (LoadResult, error) {
	var (
		ds  *loader.Dataset
		err error
	)
	switch {
	case input.DatasetPath != "":
		ds, err = loader.Load(input.DatasetPath)
	case input.DatasetName != "":
		if deps.Repo == nil {
			return LoadResult{}, fmt.Errorf("dataset %s: no graph repository configured", input.DatasetName)
		}
		ds, err = deps.Repo.LoadDataset(ctx, input.DatasetName)
	default:
		return LoadResult{}, fmt.Errorf("neither dataset path nor name given")
	}
	if err != nil {
		return LoadResult{}, err
	}

	if deps.Audit != nil {
		entities := len(ds.Applications) + len(ds.Topics) + len(ds.Nodes) + len(ds.Libraries)
		edges := len(ds.Relations.PublishesTo) + len(ds.Relations.SubscribesTo) +
			len(ds.Relations.RunsOn) + len(ds.Relations.Uses)
		deps.Audit.LogDatasetLoad(ds.Name, entities, edges)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return LoadResult{}, fmt.Errorf("marshal dataset: %w", err)
	}
	return LoadResult{DatasetJSON: string(data)}, nil
}

// AnalyzeActivity runs the analysis pipeline.
func AnalyzeActivity(ctx context.Context, datasetJSON string) (AnalyzeResult, error) {
	var ds loader.Dataset
	if err := json.Unmarshal([]byte(datasetJSON), &ds); err != nil {
		return AnalyzeResult{}, fmt.Errorf("unmarshal dataset: %w", err)
	}

	if deps.Audit != nil {
		deps.Audit.LogAnalysisStart(ds.Name, "")
	}
	start := time.Now()

	res, err := analysis.Run(ctx, &ds, deps.Analysis)
	if err != nil {
		if deps.Audit != nil {
			deps.Audit.LogAnalysisError(ds.Name, "", err)
		}
		return AnalyzeResult{}, err
	}

	if deps.Audit != nil {
		deps.Audit.LogAnalysisComplete(ds.Name, "", time.Since(start), res.Anomalies())
	}

	data, err := json.Marshal(res)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("marshal result: %w", err)
	}
	return AnalyzeResult{
		Dataset:    res.Dataset,
		Anomalies:  res.Anomalies(),
		ResultJSON: string(data),
	}, nil
}

// WriteReportActivity writes the JSON report file.
func WriteReportActivity(ctx context.Context, resultJSON, path string) error {
	var res analysis.Result
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}

	n, err := report.WriteJSONFile(path, &res)
	if err != nil {
		return err
	}
	if deps.Audit != nil {
		deps.Audit.LogReportWrite(res.Dataset, path, n)
	}
	return nil
}

// StoreDatasetActivity persists the dataset to the graph repository.
func StoreDatasetActivity(ctx context.Context, datasetJSON string) error {
	if deps.Repo == nil {
		return fmt.Errorf("no graph repository configured")
	}

	var ds loader.Dataset
	if err := json.Unmarshal([]byte(datasetJSON), &ds); err != nil {
		return fmt.Errorf("unmarshal dataset: %w", err)
	}

	start := time.Now()
	err := deps.Repo.StoreDataset(ctx, &ds)
	if deps.Audit != nil {
		deps.Audit.LogGraphStore(ds.Name, time.Since(start), err)
	}
	return err
}

// CompareExpertActivity grades the result against an expert list file.
func CompareExpertActivity(ctx context.Context, resultJSON, expertPath string) (CompareResult, error) {
	var res analysis.Result
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return CompareResult{}, fmt.Errorf("unmarshal result: %w", err)
	}

	expert, err := compare.LoadExpert(expertPath)
	if err != nil {
		return CompareResult{}, err
	}

	rep := compare.Against(&res, expert)
	return CompareResult{AvgF1: rep.AvgF1, Agreement: string(rep.Agreement)}, nil
}
