// Package merger intersects per-token result sets by document.
package merger

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
)

// Intersect keeps the documents present in every set. Each input must be in
// ascending DocID order. Sets are merged smallest first; a surviving
// document carries the offsets of every set, concatenated in merge order.
// The inputs are not modified.
func Intersect(sets [][]corpus.Result) []corpus.Result {
	if len(sets) == 0 {
		return nil
	}
	order := make([]int, len(sets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(sets[order[a]]) < len(sets[order[b]])
	})

	base := sets[order[0]]
	acc := make([]corpus.Result, len(base))
	for i, r := range base {
		acc[i] = corpus.Result{
			Title:   r.Title,
			DocID:   r.DocID,
			Offsets: append([]uint32(nil), r.Offsets...),
		}
	}

	for _, k := range order[1:] {
		other := sets[k]
		next := acc[:0]
		cursor := 0
		for _, r := range acc {
			cursor += sort.Search(len(other)-cursor, func(j int) bool {
				return other[cursor+j].DocID >= r.DocID
			})
			if cursor == len(other) {
				break
			}
			if other[cursor].DocID == r.DocID {
				r.Offsets = append(r.Offsets, other[cursor].Offsets...)
				next = append(next, r)
			}
		}
		acc = next
		if len(acc) == 0 {
			return nil
		}
	}
	return acc
}
