package metrics

import "github.com/pubscope/pubscope/internal/model"

// ComputeApplications evaluates the application metric table.
//
//	R:  distinct peers reachable through shared topics
//	A:  reach per published topic, R / (|Y|+1)
//	RA: publisher/subscriber asymmetry in (-1, 1)
//	TC: distinct topic categories touched
//	LE: libraries used
func ComputeApplications(g *model.Graph, categories map[string]string) Table {
	table := make(Table, len(g.Applications()))

	for _, app := range g.Applications() {
		pubs := g.PubTopics(app)
		subs := g.SubTopics(app)

		reached := make(model.IDSet)
		for t := range pubs {
			for peer := range g.Subscribers(t) {
				reached[peer] = true
			}
		}
		for t := range subs {
			for peer := range g.Publishers(t) {
				reached[peer] = true
			}
		}
		delete(reached, app) // self-referential edges never count

		contexts := make(map[string]bool)
		for t := range pubs {
			contexts[categories[t]] = true
		}
		for t := range subs {
			contexts[categories[t]] = true
		}

		r := float64(len(reached))
		y := float64(len(pubs))
		a := float64(len(subs))

		table[app] = map[Metric]float64{
			Reach:            r,
			Amplification:    r / (y + 1),
			RoleAsymmetry:    (y - a) / (y + a + 1),
			ContextDiversity: float64(len(contexts)),
			LibraryExposure:  float64(len(g.LibsOf(app))),
		}
	}
	return table
}
