// Package cycles detects elementary feedback structures in the
// interaction graph: applications that consume their own output, and
// application pairs that feed each other through a pair of topics.
package cycles

import (
	"sort"

	"github.com/pubscope/pubscope/internal/model"
)

// SelfLoop is an application publishing to and subscribing from the
// same topic.
type SelfLoop struct {
	App   string `json:"app"`
	Topic string `json:"topic"`
}

// PairLoop is a two-application feedback loop: A publishes to Forward
// which B consumes, and B publishes to Backward which A consumes. The
// pair is reported once with A < B.
type PairLoop struct {
	AppA     string `json:"app_a"`
	AppB     string `json:"app_b"`
	Forward  string `json:"forward_topic"`
	Backward string `json:"backward_topic"`
}

// Report holds all detected loops in deterministic order.
type Report struct {
	SelfLoops []SelfLoop `json:"self_loops"`
	PairLoops []PairLoop `json:"pair_loops"`
}

// Detect scans the graph for self loops and pairwise loops. Output
// ordering is fixed: ascending by app id, then topic id.
func Detect(g *model.Graph) Report {
	var rep Report

	for _, app := range g.Applications() {
		subs := g.SubTopics(app)
		for t := range g.PubTopics(app) {
			if subs[t] {
				rep.SelfLoops = append(rep.SelfLoops, SelfLoop{App: app, Topic: t})
			}
		}
	}
	sort.Slice(rep.SelfLoops, func(i, j int) bool {
		a, b := rep.SelfLoops[i], rep.SelfLoops[j]
		if a.App != b.App {
			return a.App < b.App
		}
		return a.Topic < b.Topic
	})

	apps := g.Applications()
	for i, a := range apps {
		for _, b := range apps[i+1:] {
			fwd, ok := link(g, a, b)
			if !ok {
				continue
			}
			back, ok := link(g, b, a)
			if !ok {
				continue
			}
			rep.PairLoops = append(rep.PairLoops, PairLoop{
				AppA: a, AppB: b, Forward: fwd, Backward: back,
			})
		}
	}
	return rep
}

// link reports the smallest topic id through which from reaches to, if
// any. Picking the minimum keeps Detect deterministic when several
// topics connect the same pair.
func link(g *model.Graph, from, to string) (string, bool) {
	subs := g.SubTopics(to)
	best := ""
	for t := range g.PubTopics(from) {
		if !subs[t] {
			continue
		}
		if best == "" || t < best {
			best = t
		}
	}
	return best, best != ""
}
