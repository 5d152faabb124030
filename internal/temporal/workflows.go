// Package temporal orchestrates analysis runs as Temporal workflows so
// large dataset batches survive worker restarts and retries.
package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"
)

// AnalysisInput holds the workflow parameters.
type AnalysisInput struct {
	// DatasetPath is a JSON dataset file readable by the worker. When
	// empty, DatasetName is loaded from the graph repository instead.
	DatasetPath string
	DatasetName string

	// ReportPath receives the JSON report. Empty skips the report
	// activity.
	ReportPath string

	// StoreGraph persists the dataset to the graph repository after a
	// successful analysis.
	StoreGraph bool

	// ExpertPath compares the result against an expert list when set.
	ExpertPath string
}

// AnalysisOutput holds the workflow result summary. The full result
// document travels through the report file, not workflow history.
type AnalysisOutput struct {
	Dataset    string
	Anomalies  int
	ReportPath string
	AvgF1      float64
	Agreement  string
}

// AnalysisWorkflow runs load, analyze, report, and the optional store
// and expert comparison steps as retryable activities.
func AnalysisWorkflow(ctx workflow.Context, input AnalysisInput) (*AnalysisOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var loaded LoadResult
	if err := workflow.ExecuteActivity(ctx, LoadDatasetActivity, input).Get(ctx, &loaded); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	var analyzed AnalyzeResult
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivity, loaded.DatasetJSON).Get(ctx, &analyzed); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	out := &AnalysisOutput{
		Dataset:   analyzed.Dataset,
		Anomalies: analyzed.Anomalies,
	}

	if input.ReportPath != "" {
		if err := workflow.ExecuteActivity(ctx, WriteReportActivity, analyzed.ResultJSON, input.ReportPath).
			Get(ctx, nil); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		out.ReportPath = input.ReportPath
	}

	if input.StoreGraph {
		if err := workflow.ExecuteActivity(ctx, StoreDatasetActivity, loaded.DatasetJSON).
			Get(ctx, nil); err != nil {
			return nil, fmt.Errorf("store dataset: %w", err)
		}
	}

	if input.ExpertPath != "" {
		var cmp CompareResult
		if err := workflow.ExecuteActivity(ctx, CompareExpertActivity, analyzed.ResultJSON, input.ExpertPath).
			Get(ctx, &cmp); err != nil {
			return nil, fmt.Errorf("compare expert: %w", err)
		}
		out.AvgF1 = cmp.AvgF1
		out.Agreement = cmp.Agreement
	}

	return out, nil
}
