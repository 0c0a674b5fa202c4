// Package segment implements the on-disk index format: a flat sequence of
// little-endian fields (u32 scalars, length-prefixed byte strings and u32
// vectors) followed by an xxh3 checksum of everything before it. Files are
// written to a .tmp sibling and renamed into place once synced.
package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// IndexType is the tag stored in the first field of every index file.
type IndexType uint32

const (
	QuickSearch     IndexType = 0
	OneGram         IndexType = 1
	TwoGram         IndexType = 2
	InvertedFile    IndexType = 3
	SuffixArray     IndexType = 4
	SuffixArrayUTF8 IndexType = 5
)

func (t IndexType) Valid() bool {
	return t <= SuffixArrayUTF8
}

// ChecksumSize is the length of the trailer appended after the last field.
const ChecksumSize = 8

// Encoder writes index fields. The first write error is kept and every later
// call becomes a no-op; Err reports it.
type Encoder struct {
	w    io.Writer
	hash *xxh3.Hasher
	buf  [4]byte
	n    int64
	err  error
}

func NewEncoder(w io.Writer) *Encoder {
	h := xxh3.New()
	return &Encoder{w: io.MultiWriter(w, h), hash: h}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	if err != nil {
		e.err = fmt.Errorf("writing index field: %w: %w", apperrors.ErrIO, err)
	}
}

func (e *Encoder) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:], v)
	e.write(e.buf[:])
}

func (e *Encoder) Type(t IndexType) {
	e.Uint32(uint32(t))
}

// Bytes writes a u32 length followed by the raw bytes.
func (e *Encoder) Bytes(p []byte) {
	e.Uint32(uint32(len(p)))
	e.write(p)
}

func (e *Encoder) Text(s string) {
	e.Bytes([]byte(s))
}

// Uint32s writes a u32 element count followed by the elements.
func (e *Encoder) Uint32s(v []uint32) {
	e.Uint32(uint32(len(v)))
	if len(v) == 0 {
		return
	}
	out := make([]byte, 0, 4*len(v))
	for _, x := range v {
		out = binary.LittleEndian.AppendUint32(out, x)
	}
	e.write(out)
}

func (e *Encoder) Uint64s(v []uint64) {
	e.Uint32(uint32(len(v)))
	if len(v) == 0 {
		return
	}
	out := make([]byte, 0, 8*len(v))
	for _, x := range v {
		out = binary.LittleEndian.AppendUint64(out, x)
	}
	e.write(out)
}

func (e *Encoder) Strings(v []string) {
	e.Uint32(uint32(len(v)))
	for _, s := range v {
		e.Text(s)
	}
}

// Uint32Lists writes a count followed by each list as a u32 vector.
func (e *Encoder) Uint32Lists(v [][]uint32) {
	e.Uint32(uint32(len(v)))
	for _, list := range v {
		e.Uint32s(list)
	}
}

// Finish appends the checksum trailer. No field may be written afterwards.
func (e *Encoder) Finish() error {
	if e.err != nil {
		return e.err
	}
	var trailer [ChecksumSize]byte
	binary.LittleEndian.PutUint64(trailer[:], e.hash.Sum64())
	e.write(trailer[:])
	return e.err
}

func (e *Encoder) Err() error {
	return e.err
}

// Written reports the number of bytes written so far.
func (e *Encoder) Written() int64 {
	return e.n
}

// WriteFile atomically replaces path with the fields produced by fill. It
// writes to path+".tmp", syncs, and renames on success.
func WriteFile(path string, fill func(*Encoder) error) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating index directory: %w: %w", apperrors.ErrIO, err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp index file: %w: %w", apperrors.ErrIO, err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriterSize(f, 1<<20)
	enc := NewEncoder(bw)
	if err := fill(enc); err != nil {
		return 0, err
	}
	if err := enc.Finish(); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flushing index file: %w: %w", apperrors.ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("syncing index file: %w: %w", apperrors.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing index file: %w: %w", apperrors.ErrIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("renaming index file: %w: %w", apperrors.ErrIO, err)
	}
	committed = true
	return enc.Written(), nil
}
