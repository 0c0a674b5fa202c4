package inverted

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

func build(t *testing.T, mode tokenizer.Mode, method codec.Method, docs ...string) *Index {
	t.Helper()
	ix := New(mode, method)
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

func TestSeparatedSearch(t *testing.T) {
	ix := build(t, tokenizer.Separated, codec.None, "the cat sat", "the dog ran")

	results := search(t, ix, "the")
	require.Len(t, results, 2)
	assert.Equal(t, []uint32{0}, results[0].Offsets)
	assert.Equal(t, []uint32{0}, results[1].Offsets)

	results = search(t, ix, "dog")
	require.Len(t, results, 1)
	assert.Equal(t, uint32(1), results[0].DocID)
	assert.Equal(t, []uint32{4}, results[0].Offsets)

	assert.Empty(t, search(t, ix, "bird"))
	assert.Equal(t, 5, ix.TermCount())
	assert.Equal(t, "Inverted File", ix.Name())
}

func TestNGramSearchMatchesSubstrings(t *testing.T) {
	docs := []string{"banana bandana", "cabana", "あいうえおあいう"}
	for _, mode := range []tokenizer.Mode{tokenizer.OneGram, tokenizer.TwoGram} {
		for _, method := range []codec.Method{codec.None, codec.VarByte, codec.Rice} {
			ix := build(t, mode, method, docs...)
			name := ix.Name()

			results := search(t, ix, "ana")
			require.Len(t, results, 2, name)
			assert.Equal(t, []uint32{1, 3, 11}, results[0].Offsets, name)
			assert.Equal(t, []uint32{3}, results[1].Offsets, name)

			results = search(t, ix, "あいう")
			require.Len(t, results, 1, name)
			assert.Equal(t, uint32(2), results[0].DocID, name)
			assert.Equal(t, []uint32{0, 15}, results[0].Offsets, name)

			assert.Empty(t, search(t, ix, "nab"), name)
			assert.Empty(t, search(t, ix, "xyz"), name)
			assert.Empty(t, search(t, ix, ""), name)
		}
	}
}

func TestOneGramMatchesAcrossGaps(t *testing.T) {
	// Positions are verified per character, so "ac" only matches adjacent.
	ix := build(t, tokenizer.OneGram, codec.None, "abc ac")
	results := search(t, ix, "ac")
	require.Len(t, results, 1)
	assert.Equal(t, []uint32{4}, results[0].Offsets)
}

func TestTwoGramSingleCharacter(t *testing.T) {
	ix := build(t, tokenizer.TwoGram, codec.Rice, "abcabc", "xbx", "b")

	results := search(t, ix, "b")
	require.Len(t, results, 2)
	assert.Equal(t, []uint32{1, 4}, results[0].Offsets)
	assert.Equal(t, []uint32{1}, results[1].Offsets)

	results = search(t, ix, "a")
	require.Len(t, results, 1)
	assert.Equal(t, []uint32{0, 3}, results[0].Offsets)
}

func TestTwoGramOddAndEvenQueries(t *testing.T) {
	ix := build(t, tokenizer.TwoGram, codec.None, "abcdefg abcdxfg")
	for q, want := range map[string][]uint32{
		"abcd":   {0, 8},
		"abcde":  {0},
		"cdefg":  {2},
		"dxfg":   {11},
		"abcdef": {0},
	} {
		results := search(t, ix, q)
		require.Len(t, results, 1, q)
		assert.Equal(t, want, results[0].Offsets, q)
	}
}

func TestRiceBlocksAndTail(t *testing.T) {
	ix := New(tokenizer.OneGram, codec.Rice)
	require.NoError(t, ix.AddDocument("a.txt", []byte(strings.Repeat("a", 129))))

	id := uint32(0)
	require.Len(t, ix.blocks[id], 1)
	assert.Len(t, ix.tails[id], 1)
	assert.Equal(t, []uint32{127}, ix.blockFronts[id])
	assert.Equal(t, []uint32{128}, ix.tails[id])

	results := search(t, ix, "aa")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Offsets, 128)
	assert.Equal(t, "1-gram RiceCode", ix.Name())
}

func TestCompressedMatchesUncompressed(t *testing.T) {
	var sb strings.Builder
	for i := range 400 {
		sb.WriteString("lorem ipsum dolor sit amet ")
		if i%7 == 0 {
			sb.WriteString("consectetur ")
		}
	}
	doc := sb.String()
	plain := build(t, tokenizer.OneGram, codec.None, doc, doc[:500])
	for _, method := range []codec.Method{codec.VarByte, codec.Rice} {
		packed := build(t, tokenizer.OneGram, method, doc, doc[:500])
		for _, q := range []string{"ipsum", "r s", "consectetur lorem", "t"} {
			assert.Equal(t, search(t, plain, q), search(t, packed, q), q)
		}
		assert.Less(t, packed.Size(), plain.Size())
	}
}

func TestSaveLoad(t *testing.T) {
	for _, method := range []codec.Method{codec.None, codec.VarByte, codec.Rice} {
		ix := build(t, tokenizer.TwoGram, method, strings.Repeat("abracadabra ", 40), "cadabra")

		var buf bytes.Buffer
		enc := segment.NewEncoder(&buf)
		require.NoError(t, ix.Save(enc))
		require.NoError(t, enc.Finish())

		loaded := New(tokenizer.OneGram, codec.None)
		dec := segment.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, loaded.Load(dec))
		require.NoError(t, dec.Verify())

		assert.Equal(t, ix.Name(), loaded.Name())
		assert.Equal(t, ix.TermCount(), loaded.TermCount())
		assert.Equal(t, ix.Size(), loaded.Size())
		for _, q := range []string{"cadabra", "ab", "a", "zz"} {
			assert.Equal(t, search(t, ix, q), search(t, loaded, q), q)
		}
	}
}

func TestLoadRejectsMismatchedTag(t *testing.T) {
	var buf bytes.Buffer
	enc := segment.NewEncoder(&buf)
	enc.Type(segment.TwoGram)
	enc.Uint32(uint32(tokenizer.Separated))
	enc.Uint32(uint32(codec.None))
	require.NoError(t, enc.Finish())

	dec := segment.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	err := New(tokenizer.OneGram, codec.None).Load(dec)
	assert.ErrorIs(t, err, apperrors.ErrUnknownTag)
}

func TestPostingsStrictlyIncrease(t *testing.T) {
	var docs []string
	for i := range 6 {
		docs = append(docs, strings.Repeat("abcab ", 60+i*7)+"あいあい")
	}
	for _, mode := range []tokenizer.Mode{tokenizer.OneGram, tokenizer.TwoGram, tokenizer.Separated} {
		for _, method := range []codec.Method{codec.VarByte, codec.Rice} {
			ix := build(t, mode, method, docs...)
			name := ix.Name()
			sealed := 0
			buf := make([]uint32, codec.BlockSize)

			for id := range ix.tails {
				var all []uint32
				for b, blk := range ix.blocks[id] {
					require.NoError(t, blk.Decode(buf), name)
					assert.Equal(t, ix.blockFronts[id][b], buf[len(buf)-1], name)
					all = append(all, buf...)
					sealed++
				}
				all = append(all, ix.tails[id]...)
				require.NotEmpty(t, all, name)
				assert.True(t, slices.IsSorted(all), "%s term %d", name, id)
				assert.Len(t, slices.Compact(slices.Clone(all)), len(all), "%s term %d", name, id)
			}
			assert.Positive(t, sealed, "%s seals blocks", name)
		}
	}
}

func BenchmarkSearchOneCharacter(b *testing.B) {
	ix := New(tokenizer.TwoGram, codec.VarByte)
	text := []byte(strings.Repeat("あいうえおかきくけこさしすせそ", 2000))
	if err := ix.AddDocument("kana.txt", text); err != nil {
		b.Fatal(err)
	}
	query := []byte("か")
	b.ResetTimer()
	for b.Loop() {
		if _, err := ix.Search(query); err != nil {
			b.Fatal(err)
		}
	}
}
