// Package corpus stores document titles and the concatenated document text
// that every index backend searches and snippets from.
package corpus

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
)

// Result is one matching document. Offsets are byte offsets of the match
// starts relative to the start of the document, ascending.
type Result struct {
	Title   string   `json:"title"`
	DocID   uint32   `json:"doc_id"`
	Offsets []uint32 `json:"offsets"`
}

// Corpus is the text of every document followed by a zero guard byte. The
// byte range of document i is [offsets[i], offsets[i+1]); offsets always
// starts with 0 and has one more entry than there are documents.
type Corpus struct {
	text    []byte
	offsets []uint32
	titles  []string
}

func New() *Corpus {
	return &Corpus{offsets: []uint32{0}}
}

// Add appends a document and returns its ID. Callers index content at base
// offset Len() before adding it.
func (c *Corpus) Add(title string, content []byte) uint32 {
	id := uint32(len(c.titles))
	c.titles = append(c.titles, title)
	c.text = append(c.text, content...)
	c.text = append(c.text, 0)
	c.offsets = append(c.offsets, uint32(len(c.text)))
	return id
}

// Len is the length of the concatenated text.
func (c *Corpus) Len() int {
	return len(c.text)
}

func (c *Corpus) Text() []byte {
	return c.text
}

func (c *Corpus) DocCount() int {
	return len(c.titles)
}

func (c *Corpus) Title(docID uint32) string {
	if int(docID) >= len(c.titles) {
		return ""
	}
	return c.titles[docID]
}

// Snippet returns up to length bytes of document docID starting at offset.
// The window is clipped at the document end, guard byte included.
func (c *Corpus) Snippet(docID uint32, offset uint32, length int) []byte {
	if int(docID) >= len(c.titles) || length <= 0 {
		return nil
	}
	start := uint64(c.offsets[docID]) + uint64(offset)
	limit := uint64(c.offsets[docID+1])
	if start >= limit {
		return nil
	}
	end := min(start+uint64(length), limit)
	return c.text[start:end]
}

// Decode groups ascending global positions into per-document results.
// Positions past the end of the text are dropped.
func (c *Corpus) Decode(positions []uint32) []Result {
	var results []Result
	first := 0
	for i := 0; i < len(positions); {
		pos := positions[i]
		next := first + sort.Search(len(c.offsets)-first, func(j int) bool {
			return c.offsets[first+j] > pos
		})
		if next == len(c.offsets) {
			break
		}
		doc := next - 1
		begin, end := c.offsets[doc], c.offsets[next]
		r := Result{Title: c.titles[doc], DocID: uint32(doc)}
		for ; i < len(positions) && positions[i] < end; i++ {
			r.Offsets = append(r.Offsets, positions[i]-begin)
		}
		results = append(results, r)
		first = next
	}
	return results
}

// Size is text bytes plus title bytes plus 4 bytes per offset entry.
func (c *Corpus) Size() int {
	n := len(c.text) + 4*len(c.offsets)
	for _, t := range c.titles {
		n += len(t)
	}
	return n
}

// Save writes text, offsets and titles in that order.
func (c *Corpus) Save(enc *segment.Encoder) {
	enc.Bytes(c.text)
	enc.Uint32s(c.offsets)
	enc.Strings(c.titles)
}

// Load reads a corpus written by Save.
func Load(dec *segment.Decoder) *Corpus {
	c := &Corpus{
		text:    dec.Bytes(),
		offsets: dec.Uint32s(),
		titles:  dec.Strings(),
	}
	if len(c.offsets) == 0 {
		c.offsets = []uint32{0}
	}
	return c
}

// Consistent reports whether the offsets describe the text and titles.
func (c *Corpus) Consistent() bool {
	if len(c.offsets) != len(c.titles)+1 || c.offsets[0] != 0 {
		return false
	}
	for i := 1; i < len(c.offsets); i++ {
		if c.offsets[i] < c.offsets[i-1] {
			return false
		}
	}
	return int(c.offsets[len(c.offsets)-1]) == len(c.text)
}
