package metrics

import "github.com/pubscope/pubscope/internal/model"

// ComputeLibraries evaluates the library metric table.
//
//	LC:   applications using the library
//	LCon: largest co-located user group, max over nodes of |S(n) ∩ U(l)|
func ComputeLibraries(g *model.Graph) Table {
	table := make(Table, len(g.Libraries()))

	for _, lib := range g.Libraries() {
		users := g.UsersOf(lib)

		perNode := make(map[string]int)
		for app := range users {
			if n, ok := g.HostOf(app); ok {
				perNode[n]++
			}
		}
		maxColoc := 0
		for _, count := range perNode {
			if count > maxColoc {
				maxColoc = count
			}
		}

		table[lib] = map[Metric]float64{
			LibraryCoverage:      float64(len(users)),
			LibraryConcentration: float64(maxColoc),
		}
	}
	return table
}
