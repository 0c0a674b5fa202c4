package codec

import (
	"fmt"
	"math/bits"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
)

// maxRadix keeps the remainder width below the word size.
const maxRadix = 31

// RiceBlock stores the first value in words[0]. The following words are a
// little-endian bit stream: the radix in unary form (1<<radix over radix+1
// bits), then for each gap d = v[i]-v[i-1]-1 the quotient d>>radix in unary
// (zeros closed by a one) and the low radix bits of d.
type RiceBlock struct {
	words []uint32
}

func riceRadix(values []uint32) uint {
	mean := (values[len(values)-1] - values[0]) / uint32(len(values)-1)
	radix := uint(bits.Len32(mean))
	return min(radix, maxRadix)
}

func (b *RiceBlock) Encode(values []uint32) {
	b.words = b.words[:0]
	if len(values) == 0 {
		return
	}
	b.words = append(b.words, values[0])
	if len(values) == 1 {
		return
	}
	radix := riceRadix(values)
	w := bitWriter{words: append(b.words, 0)}
	w.putBits(1<<radix, radix+1)
	mask := uint32(1)<<radix - 1
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1] - 1
		w.putUnary(d >> radix)
		w.putBits(d&mask, radix)
	}
	b.words = w.words
}

func (b *RiceBlock) Decode(dst []uint32) error {
	if len(dst) == 0 {
		return nil
	}
	if len(b.words) == 0 {
		return fmt.Errorf("rice baseline: %w", ErrCorrupt)
	}
	dst[0] = b.words[0]
	if len(dst) == 1 {
		return nil
	}
	r := bitReader{words: b.words, pos: 1}
	radix, err := r.unary()
	if err != nil {
		return err
	}
	if radix > maxRadix {
		return fmt.Errorf("rice radix %d: %w", radix, ErrCorrupt)
	}
	for i := 1; i < len(dst); i++ {
		q, err := r.unary()
		if err != nil {
			return err
		}
		low, err := r.bits(uint(radix))
		if err != nil {
			return err
		}
		dst[i] = dst[i-1] + (q<<radix | low) + 1
	}
	return nil
}

func (b *RiceBlock) Size() int {
	return 4 * len(b.words)
}

func (b *RiceBlock) Save(enc *segment.Encoder) {
	enc.Uint32s(b.words)
}

func (b *RiceBlock) Load(dec *segment.Decoder) {
	b.words = dec.Uint32s()
}

// bitWriter appends bits LSB first; off is the next free bit of the last word.
type bitWriter struct {
	words []uint32
	off   uint
}

func (w *bitWriter) putBits(x uint32, width uint) {
	if width == 0 {
		return
	}
	last := len(w.words) - 1
	w.words[last] |= x << w.off
	if w.off+width < 32 {
		w.off += width
		return
	}
	written := 32 - w.off
	w.words = append(w.words, 0)
	if written < width {
		w.words[last+1] = x >> written
	}
	w.off = w.off + width - 32
}

func (w *bitWriter) putUnary(q uint32) {
	w.off += uint(q)
	for w.off >= 32 {
		w.words = append(w.words, 0)
		w.off -= 32
	}
	w.words[len(w.words)-1] |= 1 << w.off
	w.off++
	if w.off == 32 {
		w.words = append(w.words, 0)
		w.off = 0
	}
}

type bitReader struct {
	words []uint32
	pos   int
	off   uint
}

func (r *bitReader) unary() (uint32, error) {
	var n uint32
	for r.pos < len(r.words) {
		word := r.words[r.pos] >> r.off
		if word != 0 {
			z := uint(bits.TrailingZeros32(word))
			n += uint32(z)
			r.off += z + 1
			if r.off == 32 {
				r.pos++
				r.off = 0
			}
			return n, nil
		}
		n += uint32(32 - r.off)
		r.pos++
		r.off = 0
	}
	return 0, fmt.Errorf("rice unary code: %w", ErrCorrupt)
}

func lowMask(width uint) uint32 {
	return uint32(uint64(1)<<width - 1)
}

func (r *bitReader) bits(width uint) (uint32, error) {
	if width == 0 {
		return 0, nil
	}
	if r.pos >= len(r.words) {
		return 0, fmt.Errorf("rice remainder: %w", ErrCorrupt)
	}
	v := r.words[r.pos] >> r.off
	if r.off+width < 32 {
		r.off += width
		return v & lowMask(width), nil
	}
	taken := 32 - r.off
	r.pos++
	r.off = r.off + width - 32
	if r.off > 0 {
		if r.pos >= len(r.words) {
			return 0, fmt.Errorf("rice remainder: %w", ErrCorrupt)
		}
		v |= (r.words[r.pos] & lowMask(r.off)) << taken
	}
	return v & lowMask(width), nil
}
