// Package codec compresses sorted position blocks of an inverted index.
//
// Both codecs store the first value verbatim and the rest as gaps: VarByte as
// base-128 varints, RiceCode as Golomb-Rice codes whose radix is derived from
// the mean gap of the block.
package codec

import (
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// BlockSize is the number of positions sealed into one compressed block.
const BlockSize = 128

// ErrCorrupt is returned when a block holds fewer values than requested.
var ErrCorrupt = errors.New("corrupt compressed block")

// Method selects the block compression of an inverted index.
type Method uint32

const (
	None    Method = 0
	VarByte Method = 1
	Rice    Method = 2
)

// ParseMethod maps the command-line names none, vb and rc to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "none":
		return None, nil
	case "vb":
		return VarByte, nil
	case "rc":
		return Rice, nil
	default:
		return None, fmt.Errorf("compression %q: %w", name, apperrors.ErrUnknownTag)
	}
}

func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case VarByte:
		return "vb"
	case Rice:
		return "rc"
	default:
		return fmt.Sprintf("method(%d)", uint32(m))
	}
}

// Label is the suffix appended to an index name, empty for None.
func (m Method) Label() string {
	switch m {
	case VarByte:
		return "VarByte"
	case Rice:
		return "RiceCode"
	default:
		return ""
	}
}

// Block is one compressed run of strictly increasing positions. Decode does
// not mutate the block and may run concurrently.
type Block interface {
	Encode(values []uint32)
	Decode(dst []uint32) error
	Size() int
	Save(enc *segment.Encoder)
	Load(dec *segment.Decoder)
}

// New returns an empty block for m.
func New(m Method) (Block, error) {
	switch m {
	case VarByte:
		return &VarByteBlock{}, nil
	case Rice:
		return &RiceBlock{}, nil
	default:
		return nil, fmt.Errorf("no block codec for %s: %w", m, apperrors.ErrUnknownTag)
	}
}

// Encode compresses values with m.
func Encode(m Method, values []uint32) (Block, error) {
	b, err := New(m)
	if err != nil {
		return nil, err
	}
	b.Encode(values)
	return b, nil
}
