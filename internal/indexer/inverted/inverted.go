// Package inverted implements the n-gram and word inverted-file backends.
//
// Every term owns a list of ascending global positions. With compression
// enabled the list is split into sealed blocks of codec.BlockSize positions
// plus an uncompressed tail; blockFronts holds the last position of each
// sealed block so that a membership probe decodes at most one block.
package inverted

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/dictionary"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

type Index struct {
	mode   tokenizer.Mode
	method codec.Method
	corpus *corpus.Corpus
	dict   *dictionary.Dictionary

	tails       [][]uint32
	blocks      [][]codec.Block
	blockFronts [][]uint32
}

func New(mode tokenizer.Mode, method codec.Method) *Index {
	return &Index{
		mode:   mode,
		method: method,
		corpus: corpus.New(),
		dict:   dictionary.New(),
	}
}

// TypeFor returns the file tag of an inverted index parsed with mode.
func TypeFor(mode tokenizer.Mode) segment.IndexType {
	switch mode {
	case tokenizer.OneGram:
		return segment.OneGram
	case tokenizer.TwoGram:
		return segment.TwoGram
	default:
		return segment.InvertedFile
	}
}

func (ix *Index) Type() segment.IndexType {
	return TypeFor(ix.mode)
}

func (ix *Index) Corpus() *corpus.Corpus {
	return ix.corpus
}

func (ix *Index) Name() string {
	var name string
	switch ix.mode {
	case tokenizer.OneGram:
		name = "1-gram"
	case tokenizer.TwoGram:
		name = "2-gram"
	default:
		name = "Inverted File"
	}
	if label := ix.method.Label(); label != "" {
		name += " " + label
	}
	return name
}

func (ix *Index) TermCount() int {
	return len(ix.tails)
}

func (ix *Index) Size() int {
	n := ix.corpus.Size() + ix.dict.Size()
	for id := range ix.tails {
		n += 4 * (len(ix.tails[id]) + len(ix.blockFronts[id]))
		for _, b := range ix.blocks[id] {
			n += b.Size()
		}
	}
	return n
}

// AddDocument indexes content at the current end of the corpus text and
// appends the document.
func (ix *Index) AddDocument(title string, content []byte) error {
	base := uint32(ix.corpus.Len())
	tokens, err := tokenizer.Parse(ix.mode, content, ix.dict, true)
	if err != nil {
		return err
	}
	for i := range tokens {
		tokens[i].Offset += base
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].TermID != tokens[j].TermID {
			return tokens[i].TermID < tokens[j].TermID
		}
		return tokens[i].Offset < tokens[j].Offset
	})
	ix.grow(ix.dict.Count())
	for _, t := range tokens {
		if err := ix.appendPosition(t.TermID, t.Offset); err != nil {
			return err
		}
	}
	ix.corpus.Add(title, content)
	return nil
}

func (ix *Index) grow(n int) {
	for len(ix.tails) < n {
		ix.tails = append(ix.tails, nil)
		ix.blocks = append(ix.blocks, nil)
		ix.blockFronts = append(ix.blockFronts, nil)
	}
}

func (ix *Index) appendPosition(id, pos uint32) error {
	tail := append(ix.tails[id], pos)
	if ix.method == codec.None || len(tail) < codec.BlockSize {
		ix.tails[id] = tail
		return nil
	}
	blk, err := codec.Encode(ix.method, tail)
	if err != nil {
		return err
	}
	ix.blocks[id] = append(ix.blocks[id], blk)
	ix.blockFronts[id] = append(ix.blockFronts[id], tail[len(tail)-1])
	ix.tails[id] = tail[:0]
	return nil
}

// Build is a no-op: posting lists are complete after every AddDocument.
func (ix *Index) Build() error {
	return nil
}

// Search returns the documents containing query as a contiguous byte
// sequence (n-gram modes) or as a word (separated mode).
func (ix *Index) Search(query []byte) ([]corpus.Result, error) {
	tokens, err := tokenizer.Parse(ix.mode, query, ix.dict, false)
	if errors.Is(err, tokenizer.ErrUnknownTerm) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	if ix.mode == tokenizer.TwoGram {
		if tokens[0].TermID == dictionary.NotFound {
			return ix.searchOneCharacter(query)
		}
		tokens = alternate(tokens)
	}
	for _, t := range tokens {
		if int(t.TermID) >= len(ix.tails) {
			return nil, nil
		}
	}

	// Rarest term first keeps the candidate set small.
	sort.SliceStable(tokens, func(i, j int) bool {
		return ix.estimate(tokens[i].TermID) < ix.estimate(tokens[j].TermID)
	})

	buf := make([]uint32, codec.BlockSize)
	var candidates []uint32
	for i, t := range tokens {
		if i == 0 {
			candidates, err = ix.seed(t, buf)
		} else {
			candidates, err = ix.intersect(t, candidates, buf)
		}
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}
	}
	return ix.corpus.Decode(candidates), nil
}

// alternate keeps every second pair plus the last one, which still covers
// every character of the query.
func alternate(tokens []tokenizer.Token) []tokenizer.Token {
	out := make([]tokenizer.Token, 0, len(tokens)/2+1)
	for i := 0; i < len(tokens); i += 2 {
		out = append(out, tokens[i])
	}
	if len(tokens)%2 == 0 {
		out = append(out, tokens[len(tokens)-1])
	}
	return out
}

func (ix *Index) estimate(id uint32) int {
	return len(ix.tails[id]) + len(ix.blocks[id])*codec.BlockSize
}

// positions decodes the whole posting list of id.
func (ix *Index) positions(id uint32, buf []uint32) ([]uint32, error) {
	out := make([]uint32, 0, ix.estimate(id))
	for _, blk := range ix.blocks[id] {
		if err := blk.Decode(buf); err != nil {
			return nil, fmt.Errorf("decoding posting block of term %d: %w", id, err)
		}
		out = append(out, buf...)
	}
	return append(out, ix.tails[id]...), nil
}

// seed turns the postings of t into candidate match starts.
func (ix *Index) seed(t tokenizer.Token, buf []uint32) ([]uint32, error) {
	all, err := ix.positions(t.TermID, buf)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p >= t.Offset {
			out = append(out, p-t.Offset)
		}
	}
	return out, nil
}

// intersect keeps the candidates c for which c+t.Offset is a position of t.
func (ix *Index) intersect(t tokenizer.Token, candidates []uint32, buf []uint32) ([]uint32, error) {
	fronts := ix.blockFronts[t.TermID]
	blocks := ix.blocks[t.TermID]
	tail := ix.tails[t.TermID]
	out := candidates[:0]

	i := 0
	decoded := -1
	for ; i < len(candidates); i++ {
		target := candidates[i] + t.Offset
		b := sort.Search(len(fronts), func(j int) bool { return fronts[j] >= target })
		if b == len(fronts) {
			break
		}
		if b != decoded {
			if err := blocks[b].Decode(buf); err != nil {
				return nil, fmt.Errorf("decoding posting block of term %d: %w", t.TermID, err)
			}
			decoded = b
		}
		k := sort.Search(len(buf), func(j int) bool { return buf[j] >= target })
		if k < len(buf) && buf[k] == target {
			out = append(out, candidates[i])
		}
	}

	// Remaining candidates lie past every sealed block.
	cursor := 0
	for ; i < len(candidates); i++ {
		target := candidates[i] + t.Offset
		cursor += sort.Search(len(tail)-cursor, func(j int) bool { return tail[cursor+j] >= target })
		if cursor == len(tail) {
			break
		}
		if tail[cursor] == target {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

// searchOneCharacter answers a single-character query against a 2-gram
// index by collecting every pair that starts with the character. A
// character that only occurs as the last one of a document has no pair and
// is not found.
func (ix *Index) searchOneCharacter(query []byte) ([]corpus.Result, error) {
	buf := make([]uint32, codec.BlockSize)
	var all []uint32
	var err error
	ix.dict.GramsWithLead(tokenizer.Pack(query), func(id uint32) {
		if err != nil || int(id) >= len(ix.tails) {
			return
		}
		var ps []uint32
		ps, err = ix.positions(id, buf)
		all = append(all, ps...)
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return ix.corpus.Decode(all), nil
}

// Save writes the index: type tag, parse mode, compression, corpus,
// dictionary, tails, block fronts and sealed blocks.
func (ix *Index) Save(enc *segment.Encoder) error {
	enc.Type(ix.Type())
	enc.Uint32(uint32(ix.mode))
	enc.Uint32(uint32(ix.method))
	ix.corpus.Save(enc)
	enc.Strings(ix.dict.Terms())
	enc.Uint64s(ix.dict.Grams())
	enc.Uint32Lists(ix.tails)
	enc.Uint32Lists(ix.blockFronts)
	enc.Uint32(uint32(len(ix.blocks)))
	for _, list := range ix.blocks {
		enc.Uint32(uint32(len(list)))
		for _, blk := range list {
			blk.Save(enc)
		}
	}
	return enc.Err()
}

// Load replaces the index contents with those read from dec.
func (ix *Index) Load(dec *segment.Decoder) error {
	tag := dec.Type()
	mode := tokenizer.Mode(dec.Uint32())
	method := codec.Method(dec.Uint32())
	if err := dec.Err(); err != nil {
		return err
	}
	if tag != TypeFor(mode) || mode > tokenizer.Separated {
		return fmt.Errorf("inverted index tag %d with parse mode %d: %w", tag, mode, apperrors.ErrUnknownTag)
	}
	if method > codec.Rice {
		return fmt.Errorf("compression %d: %w", method, apperrors.ErrUnknownTag)
	}

	c := corpus.Load(dec)
	terms := dec.Strings()
	grams := dec.Uint64s()
	tails := dec.Uint32Lists()
	fronts := dec.Uint32Lists()
	n := dec.Count(4)
	if err := dec.Err(); err != nil {
		return err
	}
	if len(fronts) != len(tails) || n != len(tails) {
		return fmt.Errorf("posting tables of %d, %d and %d terms: %w", len(tails), len(fronts), n, apperrors.ErrTruncated)
	}
	blocks := make([][]codec.Block, n)
	for id := 0; id < n && dec.Err() == nil; id++ {
		count := dec.Count(4)
		if count != len(fronts[id]) {
			return fmt.Errorf("term %d has %d blocks and %d fronts: %w", id, count, len(fronts[id]), apperrors.ErrTruncated)
		}
		for j := 0; j < count && dec.Err() == nil; j++ {
			blk, err := codec.New(method)
			if err != nil {
				return err
			}
			blk.Load(dec)
			blocks[id] = append(blocks[id], blk)
		}
	}
	if err := dec.Err(); err != nil {
		return err
	}
	if !c.Consistent() {
		return fmt.Errorf("document offsets do not match text: %w", apperrors.ErrTruncated)
	}

	ix.mode = mode
	ix.method = method
	ix.corpus = c
	ix.dict = dictionary.Restore(terms, grams, len(tails))
	ix.tails = tails
	ix.blockFronts = fronts
	ix.blocks = blocks
	return nil
}
