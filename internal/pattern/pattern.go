// Package pattern evaluates the rule-based structural patterns. Rules
// are data: each combines high/low terms over classified metrics with a
// single connective, and one generic evaluator runs the whole table.
// Adding a pattern means adding a Rule value, not control flow.
package pattern

import (
	"sort"

	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
	"github.com/pubscope/pubscope/internal/quartile"
)

// Name is a pattern's short rule identifier.
type Name string

const (
	WideReach                Name = "WR"
	RoleSkew                 Name = "RS"
	ContextSpread            Name = "CS"
	SharedDependencyExposure Name = "SD"
	CommunicationBackbone    Name = "CB"
	DirectionalConcentration Name = "DC"
	InteractionHotspot       Name = "IH"
	WidelyUsedLibrary        Name = "WUL"
	ConcentratedLibrary      Name = "CL"
)

// Band selects which side of the distribution a term tests.
type Band int

const (
	High Band = iota
	Low
)

// Op is the connective joining a rule's terms.
type Op int

const (
	AllOf Op = iota
	AnyOf
)

// Term is one classified-metric predicate.
type Term struct {
	Metric metrics.Metric
	Band   Band
}

// Rule is one structural pattern definition for one entity kind.
type Rule struct {
	Name  Name
	Kind  model.Kind
	Title string
	Op    Op
	Terms []Term
}

// Rules is the full pattern table.
var Rules = []Rule{
	{WideReach, model.KindApplication, "Wide Reach", AllOf,
		[]Term{{metrics.Reach, High}, {metrics.Amplification, High}}},
	{RoleSkew, model.KindApplication, "Role Skew", AnyOf,
		[]Term{{metrics.RoleAsymmetry, High}, {metrics.RoleAsymmetry, Low}}},
	{ContextSpread, model.KindApplication, "Context Spread", AllOf,
		[]Term{{metrics.ContextDiversity, High}}},
	{SharedDependencyExposure, model.KindApplication, "Shared-Dependency Exposure", AllOf,
		[]Term{{metrics.LibraryExposure, High}}},
	{CommunicationBackbone, model.KindTopic, "Communication Backbone", AllOf,
		[]Term{{metrics.Coverage, High}, {metrics.Imbalance, Low}}},
	{DirectionalConcentration, model.KindTopic, "Directional Concentration", AllOf,
		[]Term{{metrics.Imbalance, High}}},
	{InteractionHotspot, model.KindNode, "Interaction Hotspot", AllOf,
		[]Term{{metrics.NodeDensity, High}, {metrics.InteractionDensity, High}}},
	{WidelyUsedLibrary, model.KindLibrary, "Widely-Used Library", AllOf,
		[]Term{{metrics.LibraryCoverage, High}}},
	{ConcentratedLibrary, model.KindLibrary, "Concentrated Library", AllOf,
		[]Term{{metrics.LibraryConcentration, High}}},
}

// ForKind returns the rules applying to one entity kind, in table order.
func ForKind(kind model.Kind) []Rule {
	var out []Rule
	for _, r := range Rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Eval applies the rule to one entity's metric row under the given
// classification context.
func (r Rule) Eval(row map[metrics.Metric]float64, ctx quartile.Context) bool {
	for _, term := range r.Terms {
		hit := false
		switch term.Band {
		case High:
			hit = ctx.High(term.Metric, row[term.Metric])
		case Low:
			hit = ctx.Low(term.Metric, row[term.Metric])
		}
		switch r.Op {
		case AllOf:
			if !hit {
				return false
			}
		case AnyOf:
			if hit {
				return true
			}
		}
	}
	return r.Op == AllOf
}

// Result holds one kind's pattern evaluation: every entity's triggered
// patterns and, inverted, every pattern's trigger set. Both views come
// from a single pass; the trigger sets back the scorer's rarity weights
// and the reporters, and are never recomputed.
type Result struct {
	// Triggered maps entity id to its triggered pattern names in rule
	// table order.
	Triggered map[string][]Name

	// Sets maps pattern name to the ascending ids triggering it.
	Sets map[Name][]string
}

// Evaluate runs every rule of the kind against every entity in the
// table. Rules are pure predicates; an entity may trigger any number of
// them.
func Evaluate(kind model.Kind, table metrics.Table, ctx quartile.Context) Result {
	rules := ForKind(kind)
	res := Result{
		Triggered: make(map[string][]Name, len(table)),
		Sets:      make(map[Name][]string, len(rules)),
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		row := table[id]
		for _, rule := range rules {
			if rule.Eval(row, ctx) {
				res.Triggered[id] = append(res.Triggered[id], rule.Name)
				res.Sets[rule.Name] = append(res.Sets[rule.Name], id)
			}
		}
	}
	return res
}
