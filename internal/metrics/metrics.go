// Package metrics computes the structural metrics of the interaction
// graph. Every metric is a pure function of one entity and the immutable
// graph; nothing here classifies or scores.
package metrics

import "github.com/pubscope/pubscope/internal/model"

// Metric names one structural metric. The short identifiers follow the
// analysis report notation and appear as-is in result output.
type Metric string

const (
	// Application metrics.
	Reach            Metric = "R"
	Amplification    Metric = "A"
	RoleAsymmetry    Metric = "RA"
	ContextDiversity Metric = "TC"
	LibraryExposure  Metric = "LE"

	// Topic metrics.
	Coverage       Metric = "C"
	Imbalance      Metric = "I"
	PhysicalSpread Metric = "PS"

	// Node metrics.
	NodeDensity        Metric = "ND"
	InteractionDensity Metric = "NID"

	// Library metrics.
	LibraryCoverage      Metric = "LC"
	LibraryConcentration Metric = "LCon"
)

var byKind = map[model.Kind][]Metric{
	model.KindApplication: {Reach, Amplification, RoleAsymmetry, ContextDiversity, LibraryExposure},
	model.KindTopic:       {Coverage, Imbalance, PhysicalSpread},
	model.KindNode:        {NodeDensity, InteractionDensity},
	model.KindLibrary:     {LibraryCoverage, LibraryConcentration},
}

// ForKind returns the metrics defined for an entity kind, in report
// order.
func ForKind(kind model.Kind) []Metric { return byKind[kind] }

// Table holds computed metric values for every entity of one kind.
type Table map[string]map[Metric]float64

// Values collects one metric's values across the whole table population.
func (t Table) Values(m Metric) []float64 {
	out := make([]float64, 0, len(t))
	for _, row := range t {
		out = append(out, row[m])
	}
	return out
}

// Compute evaluates all metric tables for one graph snapshot. The topic
// categories parameter is the category extractor's output and only
// influences the application context diversity metric.
func Compute(g *model.Graph, categories map[string]string) map[model.Kind]Table {
	return map[model.Kind]Table{
		model.KindApplication: ComputeApplications(g, categories),
		model.KindTopic:       ComputeTopics(g),
		model.KindNode:        ComputeNodes(g),
		model.KindLibrary:     ComputeLibraries(g),
	}
}
