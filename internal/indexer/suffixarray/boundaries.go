package suffixarray

import (
	"math/bits"
	"sort"
)

// boundaries is a bit vector with one set bit per UTF-8 character start and
// a select directory of ones counts per 4-byte block.
type boundaries struct {
	bits  []byte
	table []uint32
}

func newBoundaries(n int) *boundaries {
	return &boundaries{bits: make([]byte, n/8+1)}
}

func (b *boundaries) set(i int) {
	b.bits[i/8] |= 1 << (i % 8)
}

// index builds the directory. table[j] counts the ones before block j; a
// final entry holds the total.
func (b *boundaries) index() {
	b.table = make([]uint32, 0, len(b.bits)/4+2)
	var ones uint32
	for i, v := range b.bits {
		if i%4 == 0 {
			b.table = append(b.table, ones)
		}
		ones += uint32(bits.OnesCount8(v))
	}
	b.table = append(b.table, ones)
}

// selectBit returns the position of the set bit with rank k, counting from
// zero. k must be below the number of set bits.
func (b *boundaries) selectBit(k uint32) int {
	want := k + 1
	blk := sort.Search(len(b.table), func(j int) bool { return b.table[j] >= want }) - 1
	remain := want - b.table[blk]
	pos := blk * 32
	for i := blk * 4; ; i++ {
		v := b.bits[i]
		if c := uint32(bits.OnesCount8(v)); c < remain {
			remain -= c
			pos += 8
			continue
		}
		for ; ; v >>= 1 {
			if v&1 == 1 {
				remain--
				if remain == 0 {
					return pos
				}
			}
			pos++
		}
	}
}
