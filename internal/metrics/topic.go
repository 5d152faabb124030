package metrics

import (
	"math"

	"github.com/pubscope/pubscope/internal/model"
)

// ComputeTopics evaluates the topic metric table.
//
//	C:  coverage, |A(t)| + |Y(t)|
//	I:  pub/sub imbalance in [0, 1)
//	PS: distinct nodes hosting any participant
func ComputeTopics(g *model.Graph) Table {
	table := make(Table, len(g.Topics()))

	for _, topic := range g.Topics() {
		pubs := g.Publishers(topic)
		subs := g.Subscribers(topic)

		hosts := make(map[string]bool)
		for app := range pubs {
			if n, ok := g.HostOf(app); ok {
				hosts[n] = true
			}
		}
		for app := range subs {
			if n, ok := g.HostOf(app); ok {
				hosts[n] = true
			}
		}

		p := float64(len(pubs))
		s := float64(len(subs))

		table[topic] = map[Metric]float64{
			Coverage:       s + p,
			Imbalance:      math.Abs(s-p) / (s + p + 1),
			PhysicalSpread: float64(len(hosts)),
		}
	}
	return table
}
