package analysis

import (
	"sort"

	"github.com/pubscope/pubscope/internal/model"
)

// NameCount pairs an entity with a count for the statistics leaderboards.
type NameCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Statistics summarizes the dataset's shape independently of the
// anomaly analysis. It backs the report's overview section.
type Statistics struct {
	Applications int `json:"applications"`
	Topics       int `json:"topics"`
	Nodes        int `json:"nodes"`
	Libraries    int `json:"libraries"`

	PublishEdges   int `json:"publish_edges"`
	SubscribeEdges int `json:"subscribe_edges"`
	RunsOnEdges    int `json:"runs_on_edges"`
	UsesEdges      int `json:"uses_edges"`

	// TopApplications orders applications by distinct topics touched,
	// published or subscribed.
	TopApplications []NameCount `json:"top_applications"`

	// TopNodes orders nodes by hosted application count.
	TopNodes []NameCount `json:"top_nodes"`

	// TopTopics orders topics by participant count, publishers plus
	// subscribers.
	TopTopics []NameCount `json:"top_topics"`

	// QoS counts topic QoS settings per key and value.
	QoS map[string]map[string]int `json:"qos,omitempty"`
}

// statsLeaderboardLen caps each leaderboard.
const statsLeaderboardLen = 10

// Summarize computes dataset statistics from the graph.
func Summarize(g *model.Graph) Statistics {
	st := Statistics{
		Applications: len(g.Applications()),
		Topics:       len(g.Topics()),
		Nodes:        len(g.Nodes()),
		Libraries:    len(g.Libraries()),
		QoS:          make(map[string]map[string]int),
	}

	var apps []NameCount
	for _, a := range g.Applications() {
		pub, sub := g.PubTopics(a), g.SubTopics(a)
		st.PublishEdges += len(pub)
		st.SubscribeEdges += len(sub)
		if _, ok := g.HostOf(a); ok {
			st.RunsOnEdges++
		}
		st.UsesEdges += len(g.LibsOf(a))

		touched := make(model.IDSet, len(pub)+len(sub))
		for t := range pub {
			touched[t] = true
		}
		for t := range sub {
			touched[t] = true
		}
		apps = append(apps, NameCount{
			ID: a, Name: g.EntityName(model.KindApplication, a), Count: len(touched),
		})
	}
	st.TopApplications = leaderboard(apps)

	var nodes []NameCount
	for _, n := range g.Nodes() {
		nodes = append(nodes, NameCount{
			ID: n, Name: g.EntityName(model.KindNode, n), Count: len(g.Hosted(n)),
		})
	}
	st.TopNodes = leaderboard(nodes)

	var tops []NameCount
	for _, id := range g.Topics() {
		tops = append(tops, NameCount{
			ID:    id,
			Name:  g.EntityName(model.KindTopic, id),
			Count: len(g.Publishers(id)) + len(g.Subscribers(id)),
		})

		if t, ok := g.Topic(id); ok {
			for key, val := range t.QoS {
				if st.QoS[key] == nil {
					st.QoS[key] = make(map[string]int)
				}
				st.QoS[key][val]++
			}
		}
	}
	st.TopTopics = leaderboard(tops)

	if len(st.QoS) == 0 {
		st.QoS = nil
	}
	return st
}

// leaderboard sorts by count descending, id ascending, and truncates.
func leaderboard(entries []NameCount) []NameCount {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > statsLeaderboardLen {
		entries = entries[:statsLeaderboardLen]
	}
	return entries
}
