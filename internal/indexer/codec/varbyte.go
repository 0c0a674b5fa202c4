package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
)

// VarByteBlock holds a u32 baseline followed by uvarint gaps.
type VarByteBlock struct {
	data []byte
}

func (b *VarByteBlock) Encode(values []uint32) {
	b.data = b.data[:0]
	if len(values) == 0 {
		return
	}
	b.data = binary.LittleEndian.AppendUint32(b.data, values[0])
	for i := 1; i < len(values); i++ {
		b.data = binary.AppendUvarint(b.data, uint64(values[i]-values[i-1]))
	}
}

func (b *VarByteBlock) Decode(dst []uint32) error {
	if len(dst) == 0 {
		return nil
	}
	if len(b.data) < 4 {
		return fmt.Errorf("varbyte baseline: %w", ErrCorrupt)
	}
	dst[0] = binary.LittleEndian.Uint32(b.data)
	pos := 4
	for i := 1; i < len(dst); i++ {
		gap, n := binary.Uvarint(b.data[pos:])
		if n <= 0 {
			return fmt.Errorf("varbyte gap %d: %w", i, ErrCorrupt)
		}
		pos += n
		dst[i] = dst[i-1] + uint32(gap)
	}
	return nil
}

func (b *VarByteBlock) Size() int {
	return len(b.data)
}

func (b *VarByteBlock) Save(enc *segment.Encoder) {
	enc.Bytes(b.data)
}

func (b *VarByteBlock) Load(dec *segment.Decoder) {
	b.data = dec.Bytes()
}
