// Package reload keeps the search service on the newest index file. A
// reload opens the file into a fresh engine and swaps it in atomically;
// in-flight queries finish on the engine they started with. A file that
// fails to load leaves the current engine in place.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

// Debounce is how long the watcher waits after the last change to the
// index file before reloading.
const Debounce = 250 * time.Millisecond

type SwapFunc func(ctx context.Context, e *indexer.Engine)

type Holder struct {
	path    string
	current atomic.Pointer[indexer.Engine]
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	onSwap []SwapFunc
}

func New(path string, m *metrics.Metrics) *Holder {
	return &Holder{
		path:    filepath.Clean(path),
		metrics: m,
		logger:  slog.Default().With("component", "index-reload", "path", path),
	}
}

// OnSwap registers fn to run after each successful swap.
func (h *Holder) OnSwap(fn SwapFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSwap = append(h.onSwap, fn)
}

// Current returns the serving engine, or nil before the first load.
func (h *Holder) Current() *indexer.Engine {
	return h.current.Load()
}

// Index is Current as an executor.Index, nil when nothing is loaded.
func (h *Holder) Index() executor.Index {
	if e := h.current.Load(); e != nil {
		return e
	}
	return nil
}

// Ready reports whether a usable engine is being served.
func (h *Holder) Ready() error {
	e := h.current.Load()
	if e == nil {
		return fmt.Errorf("no index loaded from %s", h.path)
	}
	return e.Ready()
}

// Load opens the index file and swaps it in. trigger labels the reload
// metric.
func (h *Holder) Load(ctx context.Context, trigger string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	e, err := indexer.Open(h.path)
	if err == nil {
		err = e.Ready()
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	if h.metrics != nil {
		h.metrics.IndexReloadsTotal.WithLabelValues(trigger, status).Inc()
	}
	if err != nil {
		h.logger.Error("index reload failed", "trigger", trigger, "error", err)
		return fmt.Errorf("reloading %s: %w", h.path, err)
	}
	e.SetMetrics(h.metrics)

	prev := h.current.Swap(e)
	h.logger.Info("index loaded",
		"trigger", trigger,
		"index_type", e.IndexName(),
		"doc_count", e.DocCount(),
		"size_bytes", e.IndexSize(),
		"replaced", prev != nil,
		"elapsed", time.Since(start),
	)
	for _, fn := range h.onSwap {
		fn(ctx, e)
	}
	return nil
}

// Watch reloads the index whenever its file is written or replaced, until
// ctx is done. The parent directory is watched so that replacement by
// rename is seen.
func (h *Holder) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(h.path), err)
	}
	h.logger.Info("watching index file")

	timer := time.NewTimer(Debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != h.path || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			timer.Reset(Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			_ = h.Load(ctx, "file")
		}
	}
}

// HandleEvent is a kafka.MessageHandler for index-complete events. Events
// for other index files are ignored.
func (h *Holder) HandleEvent(ctx context.Context, _ []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[kafka.IndexCompleteEvent](value)
	if err != nil {
		return err
	}
	if ev.Path != "" && filepath.Clean(ev.Path) != h.path {
		h.logger.Debug("ignoring index event", "event_path", ev.Path)
		return nil
	}
	return h.Load(ctx, "event")
}
