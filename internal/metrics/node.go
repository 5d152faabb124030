package metrics

import "github.com/pubscope/pubscope/internal/model"

// ComputeNodes evaluates the node metric table.
//
//	ND: hosted application count
//	NID: unordered hosted pairs interacting through some topic
func ComputeNodes(g *model.Graph) Table {
	table := make(Table, len(g.Nodes()))

	for _, node := range g.Nodes() {
		hosted := make([]string, 0, len(g.Hosted(node)))
		for app := range g.Hosted(node) {
			hosted = append(hosted, app)
		}

		pairs := 0
		for i := 0; i < len(hosted); i++ {
			for j := i + 1; j < len(hosted); j++ {
				if interacts(g, hosted[i], hosted[j]) {
					pairs++
				}
			}
		}

		table[node] = map[Metric]float64{
			NodeDensity:        float64(len(hosted)),
			InteractionDensity: float64(pairs),
		}
	}
	return table
}

// interacts reports whether some topic connects a and b in either
// direction. The pair counts once no matter how many topics link it.
func interacts(g *model.Graph, a, b string) bool {
	for t := range g.PubTopics(a) {
		if g.Subscribers(t)[b] {
			return true
		}
	}
	for t := range g.PubTopics(b) {
		if g.Subscribers(t)[a] {
			return true
		}
	}
	return false
}
