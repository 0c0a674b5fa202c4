// Package ranker orders matching documents by term frequency.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
)

// ByHitCount sorts results in place by descending number of hit offsets.
// Documents with equal counts keep their input order.
func ByHitCount(results []corpus.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return len(results[i].Offsets) > len(results[j].Offsets)
	})
}

// TotalPositions sums the hit offsets of all results.
func TotalPositions(results []corpus.Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Offsets)
	}
	return n
}
