// Package suffixarray implements the suffix-array backends. The byte variant
// sorts every suffix of the corpus text; the UTF-8 variant sorts only the
// suffixes that start on a character boundary. Both answer a query with a
// binary search for the range of suffixes it prefixes.
package suffixarray

import (
	"fmt"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

type Index struct {
	utf8   bool
	corpus *corpus.Corpus
	sa     []uint32
}

func New(utf8 bool) *Index {
	return &Index{utf8: utf8, corpus: corpus.New()}
}

func (ix *Index) Type() segment.IndexType {
	if ix.utf8 {
		return segment.SuffixArrayUTF8
	}
	return segment.SuffixArray
}

func (ix *Index) Name() string {
	if ix.utf8 {
		return "Suffix Array UTF8"
	}
	return "Suffix Array"
}

func (ix *Index) Corpus() *corpus.Corpus {
	return ix.corpus
}

func (ix *Index) Size() int {
	return ix.corpus.Size() + 4*len(ix.sa)
}

func (ix *Index) TermCount() int {
	return 0
}

// AddDocument appends a document. The suffix array is discarded until the
// next Build.
func (ix *Index) AddDocument(title string, content []byte) error {
	if ix.utf8 {
		if err := tokenizer.Validate(content); err != nil {
			return err
		}
	}
	ix.corpus.Add(title, content)
	ix.sa = nil
	return nil
}

func (ix *Index) Build() error {
	text := ix.corpus.Text()
	if ix.utf8 {
		ix.sa = buildUTF8(text)
		return nil
	}
	t := make([]int, len(text))
	for i, b := range text {
		t[i] = int(b)
	}
	sa := suffixArray(t, 256)
	ix.sa = make([]uint32, len(sa))
	for i, p := range sa {
		ix.sa[i] = uint32(p)
	}
	return nil
}

// buildUTF8 sorts character suffixes by dense character ranks and maps
// character indexes back to byte offsets.
func buildUTF8(text []byte) []uint32 {
	b := newBoundaries(len(text) + 1)
	var keys []uint32
	_ = tokenizer.Characters(text, func(start int, key uint32) error {
		b.set(start)
		keys = append(keys, key)
		return nil
	})
	b.set(len(text))
	b.index()

	alphabet := slices.Clone(keys)
	slices.Sort(alphabet)
	alphabet = slices.Compact(alphabet)
	t := make([]int, len(keys))
	for i, key := range keys {
		t[i], _ = slices.BinarySearch(alphabet, key)
	}

	sa := suffixArray(t, len(alphabet))
	out := make([]uint32, len(sa))
	for i, p := range sa {
		out[i] = uint32(b.selectBit(uint32(p)))
	}
	return out
}

// compare matches query against the suffix at pos, skipping the first
// *match bytes known to agree. It returns 0 when query prefixes the suffix,
// a negative value when the suffix sorts before query and a positive one
// otherwise, and leaves the length of the common prefix in *match.
func (ix *Index) compare(pos int, query []byte, match *int) int {
	text := ix.corpus.Text()
	m := *match
	for m < len(query) && pos+m < len(text) {
		if text[pos+m] != query[m] {
			*match = m
			return int(text[pos+m]) - int(query[m])
		}
		m++
	}
	*match = m
	if m == len(query) {
		return 0
	}
	return -1
}

type searchState int

const (
	findAny searchState = iota
	findLower
	findUpper
)

// window is a binary search range [beg, beg+size) together with the
// common prefix lengths of its left and right neighbours.
type window struct {
	beg, half, size int
	match           int
	lmatch, rmatch  int
}

func (ix *Index) bsearch(query []byte, w *window, state searchState) {
	w.half = w.size / 2
	for ; w.size > 0; w.size, w.half = w.half, w.half/2 {
		w.match = min(w.lmatch, w.rmatch)
		r := ix.compare(int(ix.sa[w.beg+w.half]), query, &w.match)
		switch {
		case r < 0 || (r == 0 && state == findUpper):
			w.beg += w.half + 1
			w.half -= 1 - w.size&1
			w.lmatch = w.match
		case r > 0 || state == findLower:
			w.rmatch = w.match
		default:
			return
		}
	}
}

// Search returns every occurrence of query in the corpus.
func (ix *Index) Search(query []byte) ([]corpus.Result, error) {
	if len(query) == 0 || len(ix.sa) == 0 {
		return nil, nil
	}
	hit := window{size: len(ix.sa)}
	ix.bsearch(query, &hit, findAny)
	if hit.size == 0 {
		return nil, nil
	}
	lower := window{beg: hit.beg, size: hit.half, lmatch: hit.lmatch, rmatch: hit.match}
	ix.bsearch(query, &lower, findLower)
	upper := window{beg: hit.beg + hit.half + 1, size: hit.size - hit.half - 1, lmatch: hit.match, rmatch: hit.rmatch}
	ix.bsearch(query, &upper, findUpper)

	positions := slices.Clone(ix.sa[lower.beg:upper.beg])
	slices.Sort(positions)
	return ix.corpus.Decode(positions), nil
}

// Save writes the type tag, the corpus and the suffix array.
func (ix *Index) Save(enc *segment.Encoder) error {
	enc.Type(ix.Type())
	ix.corpus.Save(enc)
	enc.Uint32s(ix.sa)
	return enc.Err()
}

func (ix *Index) Load(dec *segment.Decoder) error {
	tag := dec.Type()
	if err := dec.Err(); err != nil {
		return err
	}
	if tag != segment.SuffixArray && tag != segment.SuffixArrayUTF8 {
		return fmt.Errorf("suffix array tag %d: %w", tag, apperrors.ErrUnknownTag)
	}
	c := corpus.Load(dec)
	sa := dec.Uint32s()
	if err := dec.Err(); err != nil {
		return err
	}
	if !c.Consistent() {
		return fmt.Errorf("document offsets do not match text: %w", apperrors.ErrTruncated)
	}
	for _, p := range sa {
		if int(p) > c.Len() {
			return fmt.Errorf("suffix %d past text end %d: %w", p, c.Len(), apperrors.ErrTruncated)
		}
	}
	ix.utf8 = tag == segment.SuffixArrayUTF8
	ix.corpus = c
	ix.sa = sa
	return nil
}
