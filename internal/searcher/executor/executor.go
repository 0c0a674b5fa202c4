// Package executor runs a query against the current index: each token is
// searched on its own, the per-token results are intersected by document,
// ranked by hit count, and the top documents get snippets.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/tracing"
)

// Index is the part of an engine a query needs.
type Index interface {
	SearchTerm(token []byte) ([]corpus.Result, error)
	Snippet(docID, offset uint32, length int) string
}

// Options bounds the presented results.
type Options struct {
	Num        int `json:"num"`
	SnippetNum int `json:"snippet_num"`
	SnippetLen int `json:"snippet_len"`
}

type Snippet struct {
	Offset uint32 `json:"offset"`
	Text   string `json:"text"`
}

type Hit struct {
	Title    string    `json:"title"`
	DocID    uint32    `json:"doc_id"`
	HitPos   int       `json:"hit_pos"`
	Snippets []Snippet `json:"snippets"`
}

type SearchResult struct {
	Query          string  `json:"query"`
	TotalDocs      int     `json:"total_docs"`
	TotalPositions int     `json:"total_positions"`
	Results        []Hit   `json:"results"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

type Executor struct {
	current func() Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns an Executor that runs every query against the index current
// returns at the time the query starts. current may return nil while no
// index is loaded.
func New(current func() Index) *Executor {
	return &Executor{
		current: current,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// NewStatic is New over a fixed index.
func NewStatic(ix Index) *Executor {
	return New(func() Index { return ix })
}

func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// Search returns every document containing all query tokens, ranked.
func (e *Executor) Search(ctx context.Context, query string) ([]corpus.Result, error) {
	ix := e.current()
	if ix == nil {
		return nil, fmt.Errorf("search: %w", apperrors.ErrNotReady)
	}
	return e.search(ctx, ix, parser.Parse(query))
}

func (e *Executor) search(ctx context.Context, ix Index, plan *parser.QueryPlan) ([]corpus.Result, error) {
	if plan.Empty() {
		return nil, nil
	}
	sets := make([][]corpus.Result, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, span := tracing.StartChildSpan(ctx, "search_term")
		results, err := ix.SearchTerm([]byte(term))
		span.SetAttr("term", term)
		span.SetAttr("docs", len(results))
		span.End()
		if err != nil {
			return nil, fmt.Errorf("searching term %q: %w", term, err)
		}
		if len(results) == 0 {
			return nil, nil
		}
		sets = append(sets, results)
	}
	results := merger.Intersect(sets)
	ranker.ByHitCount(results)
	return results, nil
}

// Execute runs query and renders the top opts.Num documents with up to
// opts.SnippetNum snippets of opts.SnippetLen bytes each.
func (e *Executor) Execute(ctx context.Context, query string, opts Options) (*SearchResult, error) {
	start := time.Now()
	ix := e.current()
	if ix == nil {
		e.observe("error", start, 0)
		return nil, fmt.Errorf("search: %w", apperrors.ErrNotReady)
	}
	ctx, span := tracing.StartSpan(ctx, "query", logger.RequestID(ctx))
	defer func() {
		span.End()
		span.Log(e.logger)
	}()

	plan := parser.Parse(query)
	results, err := e.search(ctx, ix, plan)
	if err != nil {
		e.observe("error", start, 0)
		return nil, err
	}

	out := &SearchResult{
		Query:          query,
		TotalDocs:      len(results),
		TotalPositions: ranker.TotalPositions(results),
		Results:        make([]Hit, 0, min(len(results), max(opts.Num, 0))),
	}
	for i := 0; i < len(results) && i < opts.Num; i++ {
		r := results[i]
		hit := Hit{Title: r.Title, DocID: r.DocID, HitPos: len(r.Offsets)}
		for j := 0; j < len(r.Offsets) && j < opts.SnippetNum; j++ {
			text := ix.Snippet(r.DocID, r.Offsets[j], opts.SnippetLen)
			hit.Snippets = append(hit.Snippets, Snippet{
				Offset: r.Offsets[j],
				Text:   strings.TrimRight(text, "\x00"),
			})
		}
		out.Results = append(out.Results, hit)
	}
	out.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000

	resultType := "hit"
	if out.TotalDocs == 0 {
		resultType = "zero_result"
	}
	e.observe(resultType, start, out.TotalDocs)
	span.SetAttr("docs", out.TotalDocs)
	span.SetAttr("positions", out.TotalPositions)
	logger.FromContext(ctx).Debug("query executed",
		"query", query,
		"terms", len(plan.Terms),
		"docs", out.TotalDocs,
		"positions", out.TotalPositions,
	)
	return out, nil
}

func (e *Executor) observe(resultType string, start time.Time, docs int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues("computed").Observe(time.Since(start).Seconds())
	if resultType != "error" {
		e.metrics.SearchResultsCount.Observe(float64(docs))
	}
}
