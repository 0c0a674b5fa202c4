package corpus

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
)

func sample() *Corpus {
	c := New()
	c.Add("a.txt", []byte("the cat sat"))
	c.Add("b.txt", []byte("the dog ran"))
	return c
}

func TestAddLaysOutGuardedText(t *testing.T) {
	c := sample()
	assert.Equal(t, "the cat sat\x00the dog ran\x00", string(c.Text()))
	assert.Equal(t, []uint32{0, 12, 24}, c.offsets)
	assert.Equal(t, 2, c.DocCount())
	assert.True(t, c.Consistent())
}

func TestDecodeGroupsByDocument(t *testing.T) {
	c := sample()
	results := c.Decode([]uint32{0, 4, 12, 16, 23, 99})
	require.Len(t, results, 2)

	assert.Equal(t, Result{Title: "a.txt", DocID: 0, Offsets: []uint32{0, 4}}, results[0])
	assert.Equal(t, Result{Title: "b.txt", DocID: 1, Offsets: []uint32{0, 4, 11}}, results[1])
	assert.Empty(t, c.Decode(nil))
}

func TestSnippetClipsAtDocumentEnd(t *testing.T) {
	c := sample()
	assert.Equal(t, "cat", string(c.Snippet(0, 4, 3)))
	assert.Equal(t, "sat\x00", string(c.Snippet(0, 8, 60)))
	assert.Empty(t, c.Snippet(0, 40, 5))
	assert.Empty(t, c.Snippet(7, 0, 5))
}

func TestSaveLoad(t *testing.T) {
	c := sample()
	var buf bytes.Buffer
	enc := segment.NewEncoder(&buf)
	c.Save(enc)
	require.NoError(t, enc.Finish())

	dec := segment.NewDecoder(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	loaded := Load(dec)
	require.NoError(t, dec.Verify())

	assert.Equal(t, c.Text(), loaded.Text())
	assert.Equal(t, c.offsets, loaded.offsets)
	assert.Equal(t, "b.txt", loaded.Title(1))
	assert.Equal(t, c.Size(), loaded.Size())
}
