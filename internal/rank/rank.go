// Package rank orders scored entities within one kind and derives the
// truncated top-K views consumed by reporters.
package rank

import (
	"sort"

	"github.com/pubscope/pubscope/internal/score"
)

// DefaultTopK is the default ranking truncation length.
const DefaultTopK = 10

// Order sorts entries by Score descending; equal scores order by entity
// id ascending so reruns produce identical rankings.
func Order(entries map[string]score.Entry) []score.Entry {
	out := make([]score.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TopK truncates an ordered ranking to its first k entries. K values
// of zero or less fall back to DefaultTopK.
func TopK(ordered []score.Entry, k int) []score.Entry {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > len(ordered) {
		k = len(ordered)
	}
	return ordered[:k]
}
