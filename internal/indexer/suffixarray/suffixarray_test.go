package suffixarray

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// naive sorts suffixes with the empty suffix first.
func naive(text []int) []int {
	sa := make([]int, len(text)+1)
	for i := range sa {
		sa[i] = i
	}
	sort.Slice(sa, func(a, b int) bool {
		return slices.Compare(text[sa[a]:], text[sa[b]:]) < 0
	})
	return sa
}

func TestSuffixArrayMatchesNaiveSort(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, k := range []int{1, 2, 3, 26} {
		for n := 0; n < 60; n++ {
			text := make([]int, n)
			for i := range text {
				text[i] = rng.IntN(k)
			}
			require.Equal(t, naive(text), suffixArray(text, k), "k=%d text=%v", k, text)
		}
	}
}

func TestSuffixArrayBanana(t *testing.T) {
	text := []int{'b', 'a', 'n', 'a', 'n', 'a'}
	assert.Equal(t, []int{6, 5, 3, 1, 0, 4, 2}, suffixArray(text, 256))
}

func TestBoundariesSelect(t *testing.T) {
	b := newBoundaries(100)
	set := []int{0, 3, 7, 8, 31, 32, 33, 64, 99}
	for _, i := range set {
		b.set(i)
	}
	b.index()
	for k, want := range set {
		assert.Equal(t, want, b.selectBit(uint32(k)), "rank %d", k)
	}
}

func build(t *testing.T, utf8 bool, docs ...string) *Index {
	t.Helper()
	ix := New(utf8)
	for i, d := range docs {
		require.NoError(t, ix.AddDocument(string(rune('a'+i))+".txt", []byte(d)))
	}
	require.NoError(t, ix.Build())
	return ix
}

func search(t *testing.T, ix *Index, q string) []corpus.Result {
	t.Helper()
	results, err := ix.Search([]byte(q))
	require.NoError(t, err)
	return results
}

func TestSearchBanana(t *testing.T) {
	ix := build(t, false, "banana")

	results := search(t, ix, "ana")
	require.Len(t, results, 1)
	assert.Equal(t, []uint32{1, 3}, results[0].Offsets)

	assert.Len(t, search(t, ix, "a")[0].Offsets, 3)
	assert.Equal(t, []uint32{0}, search(t, ix, "banana")[0].Offsets)
	assert.Empty(t, search(t, ix, "bananas"))
	assert.Empty(t, search(t, ix, "c"))
	assert.Empty(t, search(t, ix, ""))
}

func TestSearchFindsEveryOccurrence(t *testing.T) {
	docs := []string{
		"mississippi river missing",
		strings.Repeat("ab", 50),
		"",
		"sip sip sip",
	}
	ix := build(t, false, docs...)
	for _, q := range []string{"ss", "issi", "sip", "ab", "bab", "i", "m", "zz", " "} {
		var want []corpus.Result
		for id, d := range docs {
			var offs []uint32
			for i := 0; i+len(q) <= len(d); i++ {
				if d[i:i+len(q)] == q {
					offs = append(offs, uint32(i))
				}
			}
			if offs != nil {
				want = append(want, corpus.Result{Title: string(rune('a'+id)) + ".txt", DocID: uint32(id), Offsets: offs})
			}
		}
		assert.Equal(t, want, search(t, ix, q), q)
	}
}

func TestUTF8MatchesOnlyCharacterStarts(t *testing.T) {
	// "い" is E3 81 84 and "か" is E3 81 8B; the byte 0x81 alone never starts
	// a character.
	docs := []string{"いかいか", "かい"}

	byteIx := build(t, false, docs...)
	utf8Ix := build(t, true, docs...)

	for _, ix := range []*Index{byteIx, utf8Ix} {
		results := search(t, ix, "いか")
		require.Len(t, results, 1, ix.Name())
		assert.Equal(t, []uint32{0, 6}, results[0].Offsets, ix.Name())

		results = search(t, ix, "い")
		require.Len(t, results, 2, ix.Name())
		assert.Equal(t, []uint32{3}, results[1].Offsets, ix.Name())
	}
	assert.NotEmpty(t, search(t, byteIx, "\x81"))
	assert.Empty(t, search(t, utf8Ix, "\x81"))
	assert.Len(t, utf8Ix.sa, 8+1, "one suffix per character plus the empty one")
}

func TestSearchBeforeBuild(t *testing.T) {
	ix := New(false)
	require.NoError(t, ix.AddDocument("a", []byte("abc")))
	assert.Empty(t, search(t, ix, "a"))
}

func TestSaveLoad(t *testing.T) {
	for _, utf8 := range []bool{false, true} {
		ix := build(t, utf8, "東京都 京都", "kyoto tokyo")

		var buf bytes.Buffer
		enc := segment.NewEncoder(&buf)
		require.NoError(t, ix.Save(enc))
		require.NoError(t, enc.Finish())

		loaded := New(false)
		dec := segment.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, loaded.Load(dec))
		require.NoError(t, dec.Verify())

		assert.Equal(t, ix.Name(), loaded.Name())
		assert.Equal(t, ix.Size(), loaded.Size())
		for _, q := range []string{"京都", "to", "o t"} {
			assert.Equal(t, search(t, ix, q), search(t, loaded, q), q)
		}
	}
}

func TestLoadRejectsOtherTags(t *testing.T) {
	var buf bytes.Buffer
	enc := segment.NewEncoder(&buf)
	enc.Type(segment.QuickSearch)
	require.NoError(t, enc.Finish())

	dec := segment.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.ErrorIs(t, New(false).Load(dec), apperrors.ErrUnknownTag)
}

func BenchmarkBuild(b *testing.B) {
	text := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 2000))
	for b.Loop() {
		ix := New(false)
		_ = ix.AddDocument("fox", text)
		_ = ix.Build()
	}
}
