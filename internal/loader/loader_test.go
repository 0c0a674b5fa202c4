package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestReadFileDecompresses(t *testing.T) {
	dir := t.TempDir()
	want := []byte("compressed corpus text")

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(want)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	writeFile(t, filepath.Join(dir, "a.txt.gz"), gz.Bytes())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "b.txt.zst"), enc.EncodeAll(want, nil))
	writeFile(t, filepath.Join(dir, "c.txt"), want)

	for _, name := range []string{"a.txt.gz", "b.txt.zst", "c.txt"} {
		got, err := ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseListExpandsGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "b.txt"), []byte("b"))
	writeFile(t, filepath.Join(dir, "docs", "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "docs", "deep", "c.txt"), []byte("c"))
	writeFile(t, filepath.Join(dir, "docs", "skip.md"), []byte("x"))

	list := strings.Join([]string{
		filepath.Join(dir, "first.txt"),
		"",
		filepath.Join(dir, "docs", "**", "*.txt") + "\r",
		filepath.Join(dir, "docs", "a.txt"),
	}, "\n")
	paths, err := parseList(strings.NewReader(list))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "first.txt"),
		filepath.Join(dir, "docs", "a.txt"),
		filepath.Join(dir, "docs", "b.txt"),
		filepath.Join(dir, "docs", "deep", "c.txt"),
		filepath.Join(dir, "docs", "a.txt"),
	}, paths)
}

func TestParseListLiteralLines(t *testing.T) {
	dir := t.TempDir()
	bracketed := filepath.Join(dir, "notes[1].txt")
	braced := filepath.Join(dir, "{draft}.txt")
	plain := filepath.Join(dir, "plain.txt")
	writeFile(t, bracketed, []byte("1"))
	writeFile(t, braced, []byte("2"))
	writeFile(t, plain, []byte("3"))
	writeFile(t, filepath.Join(dir, "notes1.txt"), []byte("glob would pick this"))

	list := strings.Join([]string{plain, bracketed, braced, plain, filepath.Join(dir, "*.txt")}, "\n")
	paths, err := parseList(strings.NewReader(list))
	require.NoError(t, err)

	assert.Equal(t, []string{
		plain,
		bracketed,
		braced,
		plain,
		filepath.Join(dir, "notes1.txt"),
	}, paths, "repeated lines stay, glob matches skip listed paths")
}

func TestFilesKeepsListOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 11 {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		writeFile(t, p, []byte(strings.Repeat("x", i)))
		paths = append(paths, p)
	}

	var titles []string
	var progress []int
	n, err := Files(context.Background(), paths, 4, func(title string, content []byte) error {
		assert.Len(t, content, len(titles))
		titles = append(titles, title)
		return nil
	}, func(n int) { progress = append(progress, n) })
	require.NoError(t, err)

	assert.Equal(t, 11, n)
	assert.Equal(t, paths, titles)
	assert.Empty(t, progress, "fewer than ProgressEvery documents")
}

func TestFilesStopsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	writeFile(t, good, []byte("ok"))

	added := 0
	_, err := Files(context.Background(), []string{good, filepath.Join(dir, "nope.txt")}, 2,
		func(string, []byte) error { added++; return nil }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open")
	assert.Zero(t, added, "a failed batch adds nothing")
}
