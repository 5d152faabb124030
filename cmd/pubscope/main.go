package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/compare"
	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/gate"
	"github.com/pubscope/pubscope/internal/loader"
	"github.com/pubscope/pubscope/internal/report"
	"github.com/pubscope/pubscope/internal/tui"
)

var version = "0.1.0"

func main() {
	var (
		configPath string
		logLevel   string

		tau      float64
		lambda   float64
		minLCP   int
		topK     int
		jsonOut  string
		useTUI   bool
		expertAt string
	)

	rootCmd := &cobra.Command{
		Use:   "pubscope",
		Short: "Structural anomaly analysis for publish/subscribe architectures",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <dataset.json>",
		Short: "Analyze a dataset and rank structural anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := analysisConfig(configPath, cmd, tau, lambda, minLCP, topK)
			if err != nil {
				return err
			}

			res, err := analyze(cmd.Context(), args[0], cfg)
			if err != nil {
				return err
			}

			if jsonOut != "" {
				if _, err := report.WriteJSONFile(jsonOut, res); err != nil {
					return err
				}
				slog.Info("report written", "path", jsonOut)
			}
			if useTUI {
				return tui.Run(res)
			}
			report.WriteText(os.Stdout, res)
			return nil
		},
	}
	analyzeCmd.Flags().Float64Var(&tau, "tau", 0, "Per-metric extremity cap (default 0.30)")
	analyzeCmd.Flags().Float64Var(&lambda, "lambda", 0, "Extremity weight (default 0.30)")
	analyzeCmd.Flags().IntVar(&minLCP, "min-lcp", 0, "Minimum category prefix length (default 3)")
	analyzeCmd.Flags().IntVar(&topK, "top-k", 0, "Ranking truncation length (default 10)")
	analyzeCmd.Flags().StringVar(&jsonOut, "json", "", "Write the full JSON report to this path")
	analyzeCmd.Flags().BoolVar(&useTUI, "tui", false, "Browse the result interactively")

	compareCmd := &cobra.Command{
		Use:   "compare <dataset.json>",
		Short: "Compare the analysis against an expert anomaly list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := analysisConfig(configPath, cmd, tau, lambda, minLCP, topK)
			if err != nil {
				return err
			}

			res, err := analyze(cmd.Context(), args[0], cfg)
			if err != nil {
				return err
			}
			expert, err := compare.LoadExpert(expertAt)
			if err != nil {
				return err
			}

			rep := compare.Against(res, expert)
			printComparison(rep)
			return nil
		},
	}
	compareCmd.Flags().StringVar(&expertAt, "expert", "", "Expert list JSON file")
	_ = compareCmd.MarkFlagRequired("expert")

	statsCmd := &cobra.Command{
		Use:   "stats <dataset.json>",
		Short: "Print dataset statistics without ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analyze(cmd.Context(), args[0], config.DefaultAnalysis())
			if err != nil {
				return err
			}
			for _, nc := range res.Stats.TopApplications {
				fmt.Printf("%-28s %d topics\n", nc.Name, nc.Count)
			}
			fmt.Printf("\n%d applications, %d topics, %d nodes, %d libraries\n",
				res.Stats.Applications, res.Stats.Topics, res.Stats.Nodes, res.Stats.Libraries)
			fmt.Printf("%d publish, %d subscribe, %d runs_on, %d uses edges\n",
				res.Stats.PublishEdges, res.Stats.SubscribeEdges,
				res.Stats.RunsOnEdges, res.Stats.UsesEdges)
			return nil
		},
	}

	var (
		gateMaxAnomalies int
		gateMaxScore     float64
		gateMaxLoops     int
		gateForbid       []string
		gateMinF1        float64
	)
	gateCmd := &cobra.Command{
		Use:   "gate <dataset.json>",
		Short: "Check a dataset against health thresholds, failing on violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := analysisConfig(configPath, cmd, tau, lambda, minLCP, topK)
			if err != nil {
				return err
			}
			res, err := analyze(cmd.Context(), args[0], cfg)
			if err != nil {
				return err
			}

			evalCtx := &gate.EvalContext{Result: res}
			if expertAt != "" {
				expert, err := compare.LoadExpert(expertAt)
				if err != nil {
					return err
				}
				rep := compare.Against(res, expert)
				evalCtx.Comparison = &rep
			}

			gcfg := gate.DefaultConfig()
			if cmd.Flags().Changed("max-anomalies") {
				gcfg.MaxAnomalies = gateMaxAnomalies
			}
			if cmd.Flags().Changed("max-score") {
				gcfg.MaxScore = gateMaxScore
			}
			if cmd.Flags().Changed("max-loops") {
				gcfg.MaxLoops = gateMaxLoops
			}
			gcfg.ForbiddenPatterns = gateForbid
			if cmd.Flags().Changed("min-f1") {
				gcfg.MinExpertF1 = gateMinF1
			}

			out := gate.BuildPipeline(gcfg).Run(evalCtx)
			printGateResult(out)
			if out.Status == gate.Failed {
				os.Exit(1)
			}
			return nil
		},
	}
	gateCmd.Flags().IntVar(&gateMaxAnomalies, "max-anomalies", 5, "Maximum flagged entities before failing")
	gateCmd.Flags().Float64Var(&gateMaxScore, "max-score", 2.0, "Maximum allowed anomaly score")
	gateCmd.Flags().IntVar(&gateMaxLoops, "max-loops", 0, "Maximum allowed feedback loops")
	gateCmd.Flags().StringSliceVar(&gateForbid, "forbid", nil, "Patterns that must not trigger (e.g. CB,DC)")
	gateCmd.Flags().Float64Var(&gateMinF1, "min-f1", 0.5, "Minimum expert agreement F1 (needs --expert)")
	gateCmd.Flags().StringVar(&expertAt, "expert", "", "Expert list JSON file")

	snapshotCmd := newSnapshotCmd(&configPath, &tau, &lambda, &minLCP, &topK)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pubscope %s\n", version)
		},
	}

	rootCmd.AddCommand(analyzeCmd, compareCmd, statsCmd, gateCmd, snapshotCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func analyze(ctx context.Context, path string, cfg config.AnalysisConfig) (*analysis.Result, error) {
	ds, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return analysis.Run(ctx, ds, cfg)
}

// analysisConfig resolves parameters: file config first, then explicit
// flags on top.
func analysisConfig(path string, cmd *cobra.Command, tau, lambda float64, minLCP, topK int) (config.AnalysisConfig, error) {
	cfg := config.DefaultAnalysis()
	if path != "" {
		full, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = full.Analysis
	}

	if cmd.Flags().Changed("tau") {
		cfg.Tau = tau
	}
	if cmd.Flags().Changed("lambda") {
		cfg.Lambda = lambda
	}
	if cmd.Flags().Changed("min-lcp") {
		cfg.MinLCPLength = minLCP
	}
	if cmd.Flags().Changed("top-k") {
		cfg.TopK = topK
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func printGateResult(out *gate.PipelineResult) {
	for _, r := range out.Gates {
		marker := "PASS"
		switch r.Status {
		case gate.Failed:
			marker = "FAIL"
		case gate.Skipped:
			marker = "SKIP"
		}
		fmt.Printf("[%s] %-20s %s\n", marker, r.Name, r.Message)
		for _, d := range r.Details {
			fmt.Printf("       %s\n", d)
		}
	}
	fmt.Printf("\n%s\n", out.Summary)
}

func printComparison(rep compare.Report) {
	for _, kc := range rep.Kinds {
		fmt.Printf("%s (k=%d)\n", kc.Kind, kc.K)
		fmt.Printf("  precision %.2f  recall %.2f  f1 %.2f  jaccard %.2f  [%s]\n",
			kc.Precision, kc.Recall, kc.F1, kc.Jaccard, kc.Agreement)
		fmt.Printf("  overlap: %s\n", strings.Join(kc.Overlap, ", "))
	}
	fmt.Printf("\naverage f1 %.2f: %s agreement with expert evaluation\n", rep.AvgF1, rep.Agreement)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
