package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
)

func TestByHitCountIsStable(t *testing.T) {
	results := []corpus.Result{
		{DocID: 0, Offsets: []uint32{1}},
		{DocID: 1, Offsets: []uint32{1, 2, 3}},
		{DocID: 2, Offsets: []uint32{4}},
		{DocID: 3, Offsets: []uint32{5, 6}},
	}
	ByHitCount(results)

	var ids []uint32
	for _, r := range results {
		ids = append(ids, r.DocID)
	}
	assert.Equal(t, []uint32{1, 3, 0, 2}, ids)
	assert.Equal(t, 7, TotalPositions(results))
}
