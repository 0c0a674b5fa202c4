// Package indexer exposes the search engine: an Engine wraps one index
// backend and gives it a document, build, persistence and query lifecycle.
//
// Every failing operation returns its error and also records the message,
// which What reports until the next failure. After a failed build or load
// the engine refuses queries with ErrNotReady.
package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/loader"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

type Engine struct {
	backend Backend
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu serialises document adds, build and load against queries.
	mu     sync.RWMutex
	dirty  bool
	broken bool

	whatMu sync.Mutex
	what   string
}

// New wraps backend in an Engine.
func New(backend Backend) *Engine {
	return &Engine{
		backend: backend,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// NewEngine creates an empty engine for method and compress; see
// NewBackend.
func NewEngine(method, compress string) (*Engine, error) {
	b, err := NewBackend(method, compress)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Open loads the index at path with the backend its type tag selects.
func Open(path string) (*Engine, error) {
	e := New(nil)
	if err := e.Load(path); err != nil {
		return nil, err
	}
	return e, nil
}

// SetMetrics enables Prometheus reporting; m may be nil.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

func (e *Engine) fail(err error) error {
	e.whatMu.Lock()
	e.what = err.Error()
	e.whatMu.Unlock()
	return err
}

// What returns the message of the most recent failure, or "".
func (e *Engine) What() string {
	e.whatMu.Lock()
	defer e.whatMu.Unlock()
	return e.what
}

func (e *Engine) observe(op string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.IndexOperationsTotal.WithLabelValues(op, status).Inc()
	e.metrics.IndexBuildDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil && e.backend != nil {
		name := e.backend.Name()
		e.metrics.IndexSizeBytes.WithLabelValues(name).Set(float64(e.backend.Size()))
		e.metrics.IndexDocuments.WithLabelValues(name).Set(float64(e.backend.Corpus().DocCount()))
	}
}

// AddFile adds the document stored at path, titled with the path.
// Compressed files are decompressed by extension.
func (e *Engine) AddFile(path string) error {
	content, err := loader.ReadFile(path)
	if err != nil {
		return e.fail(fmt.Errorf("cannot open %s: %w: %w", path, apperrors.ErrIO, err))
	}
	return e.AddDocument(path, content)
}

// AddDocument appends a document to the index.
func (e *Engine) AddDocument(title string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return e.fail(fmt.Errorf("add document: %w", apperrors.ErrNotReady))
	}
	if err := e.backend.AddDocument(title, content); err != nil {
		return e.fail(fmt.Errorf("adding document %q: %w", title, err))
	}
	e.dirty = true
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.WithLabelValues(e.backend.Name()).Inc()
	}
	e.logger.Debug("document added",
		"title", title,
		"bytes", len(content),
		"doc_count", e.backend.Corpus().DocCount(),
	)
	return nil
}

// Build finishes the index after the last AddDocument.
func (e *Engine) Build() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.build()
}

func (e *Engine) build() (err error) {
	start := time.Now()
	defer func() { e.observe("build", start, err) }()
	if e.backend == nil {
		return e.fail(fmt.Errorf("build: %w", apperrors.ErrNotReady))
	}
	if err := e.backend.Build(); err != nil {
		e.broken = true
		return e.fail(fmt.Errorf("building %s: %w", e.backend.Name(), err))
	}
	e.dirty = false
	e.broken = false
	e.logger.Info("index built",
		"index_type", e.backend.Name(),
		"doc_count", e.backend.Corpus().DocCount(),
		"term_count", e.backend.TermCount(),
		"duration", time.Since(start),
	)
	return nil
}

// Save writes the index to path, building it first if documents were added
// since the last build.
func (e *Engine) Save(path string) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil || e.broken {
		return e.fail(fmt.Errorf("save: %w", apperrors.ErrNotReady))
	}
	if e.dirty {
		if err := e.build(); err != nil {
			return err
		}
	}
	start := time.Now()
	defer func() { e.observe("save", start, err) }()
	n, err := segment.WriteFile(path, e.backend.Save)
	if err != nil {
		return e.fail(fmt.Errorf("saving %s: %w", path, err))
	}
	e.logger.Info("index saved",
		"path", path,
		"index_type", e.backend.Name(),
		"bytes", n,
		"duration", time.Since(start),
	)
	return nil
}

// Load replaces the engine contents with the index stored at path. The
// backend is chosen by the file's type tag.
func (e *Engine) Load(path string) (err error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.observe("load", start, err) }()

	tag, err := segment.PeekType(path)
	if err != nil {
		e.broken = true
		return e.fail(fmt.Errorf("loading %s: %w", path, err))
	}
	b, err := backendFor(tag)
	if err != nil {
		e.broken = true
		return e.fail(fmt.Errorf("loading %s: %w", path, err))
	}
	if err := segment.ReadFile(path, b.Load); err != nil {
		e.broken = true
		return e.fail(fmt.Errorf("loading %s: %w", path, err))
	}
	e.backend = b
	e.dirty = false
	e.broken = false
	e.logger.Info("index loaded",
		"path", path,
		"index_type", b.Name(),
		"doc_count", b.Corpus().DocCount(),
		"term_count", b.TermCount(),
		"duration", time.Since(start),
	)
	return nil
}

// SearchTerm returns the documents containing one query token, in document
// order, with the token's offsets inside each document.
func (e *Engine) SearchTerm(token []byte) ([]corpus.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil || e.broken {
		return nil, e.fail(fmt.Errorf("search: %w", apperrors.ErrNotReady))
	}
	if e.dirty {
		return nil, e.fail(fmt.Errorf("search: documents added since last build: %w", apperrors.ErrNotReady))
	}
	results, err := e.backend.Search(token)
	if err != nil {
		return nil, e.fail(fmt.Errorf("searching %q: %w", token, err))
	}
	return results, nil
}

// Snippet returns up to length bytes of document docID from offset on.
func (e *Engine) Snippet(docID, offset uint32, length int) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return ""
	}
	return string(e.backend.Corpus().Snippet(docID, offset, length))
}

func (e *Engine) IndexName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return ""
	}
	return e.backend.Name()
}

func (e *Engine) IndexSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return 0
	}
	return e.backend.Size()
}

func (e *Engine) DocCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return 0
	}
	return e.backend.Corpus().DocCount()
}

func (e *Engine) TermCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return 0
	}
	return e.backend.TermCount()
}

// Ready reports whether queries can be served.
func (e *Engine) Ready() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.backend == nil, e.broken:
		return apperrors.ErrNotReady
	case e.dirty:
		return fmt.Errorf("unbuilt documents: %w", apperrors.ErrNotReady)
	}
	return nil
}

// IsCorrupt reports whether err came from a damaged index file.
func IsCorrupt(err error) bool {
	return errors.Is(err, apperrors.ErrTruncated) || errors.Is(err, apperrors.ErrChecksum)
}
