// Package sequential is the index-free backend: it scans the corpus text
// with the Quick Search variant of Boyer-Moore on every query.
package sequential

import (
	"bytes"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

type Index struct {
	corpus *corpus.Corpus
}

func New() *Index {
	return &Index{corpus: corpus.New()}
}

func (ix *Index) Type() segment.IndexType { return segment.QuickSearch }
func (ix *Index) Name() string            { return "Quick Search" }
func (ix *Index) Corpus() *corpus.Corpus  { return ix.corpus }
func (ix *Index) Size() int               { return ix.corpus.Size() }
func (ix *Index) TermCount() int          { return 0 }
func (ix *Index) Build() error            { return nil }

func (ix *Index) AddDocument(title string, content []byte) error {
	ix.corpus.Add(title, content)
	return nil
}

// Search returns every occurrence of query, overlapping ones included.
func (ix *Index) Search(query []byte) ([]corpus.Result, error) {
	hits := scan(ix.corpus.Text(), query)
	if len(hits) == 0 {
		return nil, nil
	}
	return ix.corpus.Decode(hits), nil
}

// scan shifts by the distance from the end of the pattern to the last
// occurrence of the byte just past the window. The final byte of text is
// never a window end; the corpus guard byte makes that harmless.
func scan(text, query []byte) []uint32 {
	m, n := len(query), len(text)
	if m == 0 {
		return nil
	}
	var shift [256]int
	for i := range shift {
		shift[i] = m + 1
	}
	for i, c := range query {
		shift[c] = m - i
	}
	var hits []uint32
	for i := 0; i+m < n; i += shift[text[i+m]] {
		if bytes.Equal(text[i:i+m], query) {
			hits = append(hits, uint32(i))
		}
	}
	return hits
}

func (ix *Index) Save(enc *segment.Encoder) error {
	enc.Type(segment.QuickSearch)
	ix.corpus.Save(enc)
	return enc.Err()
}

func (ix *Index) Load(dec *segment.Decoder) error {
	if tag := dec.Type(); dec.Err() == nil && tag != segment.QuickSearch {
		return fmt.Errorf("sequential index tag %d: %w", tag, apperrors.ErrUnknownTag)
	}
	c := corpus.Load(dec)
	if err := dec.Err(); err != nil {
		return err
	}
	if !c.Consistent() {
		return fmt.Errorf("document offsets do not match text: %w", apperrors.ErrTruncated)
	}
	ix.corpus = c
	return nil
}
