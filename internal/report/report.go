// Package report renders analysis results for humans and machines. The
// text form is a sectioned plain-text summary; the JSON form is the
// full result document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/pattern"
)

// kindOrder fixes the section order of the text report.
var kindOrder = []model.Kind{
	model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
}

var kindHeading = map[model.Kind]string{
	model.KindApplication: "APPLICATIONS",
	model.KindTopic:       "TOPICS",
	model.KindNode:        "NODES",
	model.KindLibrary:     "LIBRARIES",
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// WriteJSONFile writes the JSON report to a file and reports its size.
func WriteJSONFile(path string, res *analysis.Result) (int, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("writing report: %w", err)
	}
	return len(data), nil
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, res *analysis.Result) {
	rule := strings.Repeat("=", 62)

	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "PUBSCOPE ANALYSIS REPORT\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Dataset:   %s\n", res.Dataset)
	fmt.Fprintf(w, "Duration:  %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Params:    tau=%.2f lambda=%.2f min_lcp=%d top_k=%d\n",
		res.Params.Tau, res.Params.Lambda, res.Params.MinLCPLength, res.Params.TopK)

	writeStatistics(w, res.Stats)

	for _, kind := range kindOrder {
		kr, ok := res.Kinds[kind]
		if !ok || len(kr.Ranking) == 0 {
			continue
		}
		writeKind(w, kr)
	}

	writeCycles(w, res)

	fmt.Fprintf(w, "%s\n", rule)
}

func writeStatistics(w io.Writer, st analysis.Statistics) {
	fmt.Fprintf(w, "\nOVERVIEW\n")
	fmt.Fprintf(w, "  applications %-6d topics    %-6d\n", st.Applications, st.Topics)
	fmt.Fprintf(w, "  nodes        %-6d libraries %-6d\n", st.Nodes, st.Libraries)
	fmt.Fprintf(w, "  edges: publish %d, subscribe %d, runs_on %d, uses %d\n",
		st.PublishEdges, st.SubscribeEdges, st.RunsOnEdges, st.UsesEdges)

	writeLeaderboard(w, "busiest applications (topics touched)", st.TopApplications)
	writeLeaderboard(w, "busiest topics (participants)", st.TopTopics)
	writeLeaderboard(w, "densest nodes (hosted applications)", st.TopNodes)

	if len(st.QoS) > 0 {
		fmt.Fprintf(w, "  qos settings:\n")
		for _, key := range sortedKeys(st.QoS) {
			for _, val := range sortedKeys(st.QoS[key]) {
				fmt.Fprintf(w, "    %s=%s: %d topics\n", key, val, st.QoS[key][val])
			}
		}
	}
}

func writeLeaderboard(w io.Writer, title string, entries []analysis.NameCount) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(w, "    %-28s %d\n", e.Name, e.Count)
	}
}

func writeKind(w io.Writer, kr analysis.KindResult) {
	fmt.Fprintf(w, "\n%s\n", kindHeading[kr.Kind])
	fmt.Fprintf(w, "  %-4s %-28s %9s %9s %9s  %s\n",
		"#", "name", "score", "patterns", "extremity", "triggered")

	for i, row := range kr.Top {
		fmt.Fprintf(w, "  %-4d %-28s %9.4f %9.4f %9.4f  %s\n",
			i+1, row.Name, row.Score, row.PatternScore, row.UniScore,
			joinPatterns(row.Patterns))
	}

	var names []pattern.Name
	for _, r := range pattern.ForKind(kr.Kind) {
		if len(kr.TriggerSets[r.Name]) > 0 {
			names = append(names, r.Name)
		}
	}
	if len(names) > 0 {
		fmt.Fprintf(w, "  trigger sets:\n")
		for _, n := range names {
			fmt.Fprintf(w, "    %-4s %d entities\n", n, len(kr.TriggerSets[n]))
		}
	}

	fmt.Fprintf(w, "  distributions:\n")
	for _, m := range metrics.ForKind(kr.Kind) {
		s := kr.Summaries[m]
		if s.Degenerate {
			fmt.Fprintf(w, "    %-5s degenerate (fewer than four values)\n", m)
			continue
		}
		fmt.Fprintf(w, "    %-5s min=%.3f q1=%.3f med=%.3f q3=%.3f max=%.3f\n",
			m, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	}
}

func writeCycles(w io.Writer, res *analysis.Result) {
	if len(res.Cycles.SelfLoops) == 0 && len(res.Cycles.PairLoops) == 0 {
		return
	}
	fmt.Fprintf(w, "\nFEEDBACK LOOPS\n")
	for _, l := range res.Cycles.SelfLoops {
		fmt.Fprintf(w, "  self: %s -> %s -> %s\n", l.App, l.Topic, l.App)
	}
	for _, l := range res.Cycles.PairLoops {
		fmt.Fprintf(w, "  pair: %s -> %s -> %s -> %s -> %s\n",
			l.AppA, l.Forward, l.AppB, l.Backward, l.AppA)
	}
}

func joinPatterns(names []pattern.Name) string {
	if len(names) == 0 {
		return "-"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
