// Package dictionary assigns dense term IDs. Separated words and packed
// n-gram keys live in two maps that draw from one shared counter, so an
// index built in one parse mode has IDs 0..Count()-1.
package dictionary

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// NotFound marks an absent term.
const NotFound uint32 = 0xFFFFFFFF

type Dictionary struct {
	termIDs map[string]uint32
	terms   []string
	gramIDs map[uint64]uint32
	grams   []uint64
	// gramKeys orders the gram keys for prefix scans by leading character.
	gramKeys *roaring64.Bitmap
	count    uint32
}

func New() *Dictionary {
	return &Dictionary{
		termIDs:  make(map[string]uint32),
		gramIDs:  make(map[uint64]uint32),
		gramKeys: roaring64.New(),
	}
}

// TermID returns the ID of a separated word. With create set an unknown
// word is assigned the next ID; otherwise NotFound is returned.
func (d *Dictionary) TermID(term string, create bool) uint32 {
	if id, ok := d.termIDs[term]; ok {
		return id
	}
	if !create {
		return NotFound
	}
	id := d.count
	d.count++
	d.termIDs[term] = id
	d.terms = append(d.terms, term)
	return id
}

// GramID is TermID for packed character keys: a single UTF-8 character in
// the low 32 bits, or a pair with the first character in the high 32 bits.
func (d *Dictionary) GramID(key uint64, create bool) uint32 {
	if id, ok := d.gramIDs[key]; ok {
		return id
	}
	if !create {
		return NotFound
	}
	id := d.count
	d.count++
	d.gramIDs[key] = id
	d.grams = append(d.grams, key)
	d.gramKeys.Add(key)
	return id
}

// GramsWithLead calls fn, in key order, with the ID of every pair key whose
// first character is lead.
func (d *Dictionary) GramsWithLead(lead uint32, fn func(id uint32)) {
	it := d.gramKeys.Iterator()
	it.AdvanceIfNeeded(uint64(lead) << 32)
	for it.HasNext() {
		key := it.Next()
		if uint32(key>>32) != lead {
			return
		}
		fn(d.gramIDs[key])
	}
}

// Count is the number of IDs handed out.
func (d *Dictionary) Count() int {
	return int(d.count)
}

func (d *Dictionary) Terms() []string {
	return d.terms
}

func (d *Dictionary) Grams() []uint64 {
	return d.grams
}

// Size approximates the memory held by the dictionary contents.
func (d *Dictionary) Size() int {
	n := 4 * len(d.grams)
	for _, t := range d.terms {
		n += len(t)
	}
	return n
}

// Restore rebuilds a dictionary from persisted term and gram lists. The ID
// of each entry is its list index; count is the number of posting lists the
// index holds.
func Restore(terms []string, grams []uint64, count int) *Dictionary {
	d := New()
	d.terms = terms
	d.grams = grams
	for i, t := range terms {
		d.termIDs[t] = uint32(i)
	}
	for i, g := range grams {
		d.gramIDs[g] = uint32(i)
		d.gramKeys.Add(g)
	}
	d.count = uint32(count)
	return d
}
