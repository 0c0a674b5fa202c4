// Package loader feeds documents into an index: files named by a list file
// (optionally compressed, optionally glob patterns) or rows of the
// PostgreSQL documents table.
package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// AddFunc receives one document. Documents arrive in source order.
type AddFunc func(title string, content []byte) error

// ProgressFunc is called with the running document count.
type ProgressFunc func(n int)

// ProgressEvery is how many documents pass between progress callbacks.
const ProgressEvery = 1000

// zstdDec is shared; DecodeAll is safe for concurrent use.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("loader: init zstd decoder: " + err.Error())
	}
}

// ReadFile returns the content of path, decompressing .gz and .zst files.
func ReadFile(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		compressed, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out, err := zstdDec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress zstd %s: %w", path, err)
		}
		return out, nil
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	default:
		return os.ReadFile(path)
	}
}

// ReadList reads a document list: one path per line, blank lines skipped.
// A line holding glob metacharacters expands to the matching regular files,
// sorted; a path listed twice is kept once, at its first position.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document list: %w", err)
	}
	defer f.Close()
	return parseList(f)
}

// parseList returns one path per non-empty line. A line is taken literally
// when it names an existing file or holds no glob metacharacters; such
// lines are kept even when repeated. Otherwise it is expanded as a
// doublestar pattern, in sorted order, skipping paths already listed.
func parseList(r io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if isLiteral(line) {
			seen[line] = true
			paths = append(paths, line)
			continue
		}
		matches, err := doublestar.FilepathGlob(line, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", line, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading document list: %w", err)
	}
	return paths, nil
}

func isLiteral(line string) bool {
	if !strings.ContainsAny(line, "*?[{") {
		return true
	}
	info, err := os.Stat(line)
	return err == nil && info.Mode().IsRegular()
}

// Files reads paths with up to concurrency parallel reads and hands them to
// add in list order. It stops at the first error.
func Files(ctx context.Context, paths []string, concurrency int, add AddFunc, progress ProgressFunc) (int, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	logger := slog.Default().With("component", "loader")
	added := 0
	contents := make([][]byte, concurrency)
	for start := 0; start < len(paths); start += concurrency {
		batch := paths[start:min(start+concurrency, len(paths))]
		g, gctx := errgroup.WithContext(ctx)
		for i, p := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				b, err := ReadFile(p)
				if err != nil {
					return fmt.Errorf("cannot open %s: %w", p, err)
				}
				contents[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return added, err
		}
		for i, p := range batch {
			if err := add(p, contents[i]); err != nil {
				return added, err
			}
			contents[i] = nil
			added++
			if progress != nil && added%ProgressEvery == 0 {
				progress(added)
			}
		}
	}
	logger.Debug("files loaded", "count", added)
	return added, nil
}
