package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// Decoder reads fields written by an Encoder. Like Encoder it keeps the first
// error; getters return zero values once it is set.
type Decoder struct {
	r      io.Reader
	hash   *xxh3.Hasher
	remain int64
	buf    [8]byte
	err    error
}

// NewDecoder reads from r, which holds size bytes in total including the
// checksum trailer. Length prefixes that point past the end of the data are
// rejected before anything is allocated.
func NewDecoder(r io.Reader, size int64) *Decoder {
	return &Decoder{r: r, hash: xxh3.New(), remain: size - ChecksumSize}
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(p []byte) bool {
	if d.err != nil {
		return false
	}
	if int64(len(p)) > d.remain {
		d.fail(fmt.Errorf("field of %d bytes exceeds remaining %d: %w", len(p), d.remain, apperrors.ErrTruncated))
		return false
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.fail(fmt.Errorf("reading index field: %w", apperrors.ErrTruncated))
		} else {
			d.fail(fmt.Errorf("reading index field: %w: %w", apperrors.ErrIO, err))
		}
		return false
	}
	d.remain -= int64(len(p))
	d.hash.Write(p)
	return true
}

// length reads a u32 count and checks that count*width bytes can follow.
func (d *Decoder) length(width int64) int {
	n := d.Uint32()
	if d.err != nil {
		return 0
	}
	if int64(n)*width > d.remain {
		d.fail(fmt.Errorf("length %d exceeds remaining data: %w", n, apperrors.ErrTruncated))
		return 0
	}
	return int(n)
}

func (d *Decoder) Uint32() uint32 {
	if !d.read(d.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *Decoder) Type() IndexType {
	return IndexType(d.Uint32())
}

func (d *Decoder) Bytes() []byte {
	n := d.length(1)
	if d.err != nil || n == 0 {
		return nil
	}
	p := make([]byte, n)
	if !d.read(p) {
		return nil
	}
	return p
}

func (d *Decoder) Text() string {
	return string(d.Bytes())
}

func (d *Decoder) Uint32s() []uint32 {
	n := d.length(4)
	if d.err != nil || n == 0 {
		return nil
	}
	raw := make([]byte, 4*n)
	if !d.read(raw) {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	return out
}

func (d *Decoder) Uint64s() []uint64 {
	n := d.length(8)
	if d.err != nil || n == 0 {
		return nil
	}
	raw := make([]byte, 8*n)
	if !d.read(raw) {
		return nil
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(raw[8*i:])
	}
	return out
}

func (d *Decoder) Strings() []string {
	n := d.length(4)
	if d.err != nil {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.Text())
	}
	return out
}

func (d *Decoder) Uint32Lists() [][]uint32 {
	n := d.length(4)
	if d.err != nil {
		return nil
	}
	out := make([][]uint32, n)
	for i := 0; i < n && d.err == nil; i++ {
		out[i] = d.Uint32s()
	}
	return out
}

// Count reads a u32 element count for a caller-decoded sequence whose
// elements take at least minWidth bytes each.
func (d *Decoder) Count(minWidth int64) int {
	return d.length(minWidth)
}

// Verify checks the checksum trailer against the fields read so far. All
// fields must have been consumed.
func (d *Decoder) Verify() error {
	if d.err != nil {
		return d.err
	}
	if d.remain != 0 {
		return fmt.Errorf("%d unread bytes before checksum: %w", d.remain, apperrors.ErrChecksum)
	}
	var trailer [ChecksumSize]byte
	if _, err := io.ReadFull(d.r, trailer[:]); err != nil {
		return fmt.Errorf("reading checksum: %w", apperrors.ErrTruncated)
	}
	want := binary.LittleEndian.Uint64(trailer[:])
	if got := d.hash.Sum64(); got != want {
		return fmt.Errorf("checksum %016x, stored %016x: %w", got, want, apperrors.ErrChecksum)
	}
	return nil
}

func (d *Decoder) Err() error {
	return d.err
}

// ReadFile opens path and hands a Decoder to load. The checksum is verified
// after load returns.
func ReadFile(path string, load func(*Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening index file: %w: %w", apperrors.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w: %w", apperrors.ErrIO, err)
	}
	if info.Size() < 4+ChecksumSize {
		return fmt.Errorf("index file %s is %d bytes: %w", path, info.Size(), apperrors.ErrTruncated)
	}
	dec := NewDecoder(bufio.NewReaderSize(f, 1<<20), info.Size())
	if err := load(dec); err != nil {
		return err
	}
	return dec.Verify()
}

// PeekType reads the type tag of the index file at path.
func PeekType(path string) (IndexType, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening index file: %w: %w", apperrors.ErrIO, err)
	}
	defer f.Close()

	var tag [4]byte
	if _, err := f.ReadAt(tag[:], 0); err != nil {
		return 0, fmt.Errorf("reading index tag: %w", apperrors.ErrTruncated)
	}
	t := IndexType(binary.LittleEndian.Uint32(tag[:]))
	if !t.Valid() {
		return 0, fmt.Errorf("index tag %d: %w", t, apperrors.ErrUnknownTag)
	}
	return t, nil
}
