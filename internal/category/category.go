// Package category derives a coarse functional category per topic from
// shared naming prefixes. Categories feed the application-level context
// diversity metric and nothing else.
package category

import "strings"

// DefaultMinLength is the minimum qualifying prefix length.
const DefaultMinLength = 3

// Extractor assigns one category per topic id given the full topic-name
// set. Implementations must be deterministic and order-independent.
type Extractor interface {
	Categories(names map[string]string) map[string]string
}

// PairwiseLCP is the O(n²) pairwise longest-common-prefix extractor.
// Prefixes are compared on dot-delimited segment boundaries: the shared
// prefix of "orders.created" and "orders.cancelled" is "orders", not
// "orders.c". A topic whose best qualifying prefix is with topic X gives
// X the same candidate, so assignment is symmetric. Ties between
// equal-length candidates resolve to the lexicographically smallest
// category string.
type PairwiseLCP struct {
	// MinLength is the minimum character length a shared prefix needs to
	// qualify as a category. Zero means DefaultMinLength.
	MinLength int
}

// Categories implements Extractor. Topics sharing no qualifying prefix
// with any other topic form singleton categories under their own name.
func (p PairwiseLCP) Categories(names map[string]string) map[string]string {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}

	categories := make(map[string]string, len(names))
	for id, name := range names {
		best := ""
		for otherID, otherName := range names {
			if id == otherID {
				continue
			}
			lcp := segmentPrefix(name, otherName)
			if len(lcp) < minLen {
				continue
			}
			if len(lcp) > len(best) || (len(lcp) == len(best) && lcp < best) {
				best = lcp
			}
		}
		if best == "" {
			best = name
		}
		categories[id] = best
	}
	return categories
}

// segmentPrefix returns the longest common prefix of a and b truncated
// to a complete dot-delimited segment boundary.
func segmentPrefix(a, b string) string {
	segA := strings.Split(a, ".")
	segB := strings.Split(b, ".")
	n := len(segA)
	if len(segB) < n {
		n = len(segB)
	}
	shared := 0
	for shared < n && segA[shared] == segB[shared] {
		shared++
	}
	if shared == 0 {
		return ""
	}
	return strings.Join(segA[:shared], ".")
}
