package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

func newEngine(t *testing.T, method string) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(method, "none")
	require.NoError(t, err)
	require.NoError(t, e.AddDocument("zero", []byte("the cat sat on the cat mat")))
	require.NoError(t, e.AddDocument("one", []byte("the dog ran")))
	require.NoError(t, e.AddDocument("two", []byte("a cat napped")))
	require.NoError(t, e.Build())
	return e
}

func TestExecuteAndsTerms(t *testing.T) {
	for _, method := range indexer.Methods {
		t.Run(method, func(t *testing.T) {
			ex := NewStatic(newEngine(t, method))

			res, err := ex.Execute(context.Background(), "the  cat", Options{Num: 5, SnippetNum: 3, SnippetLen: 10})
			require.NoError(t, err)
			require.Len(t, res.Results, 1)
			assert.Equal(t, uint32(0), res.Results[0].DocID)
			assert.Equal(t, "zero", res.Results[0].Title)
			assert.Equal(t, 1, res.TotalDocs)
		})
	}
}

func TestExecuteAndsEveryTermOfALongQuery(t *testing.T) {
	for _, method := range indexer.Methods {
		t.Run(method, func(t *testing.T) {
			ex := NewStatic(newEngine(t, method))
			long := strings.Repeat("the ", 40)

			res, err := ex.Execute(context.Background(), long+"dog", Options{Num: 5})
			require.NoError(t, err)
			require.Len(t, res.Results, 1)
			assert.Equal(t, "one", res.Results[0].Title)

			res, err = ex.Execute(context.Background(), long+"absent", Options{Num: 5})
			require.NoError(t, err)
			assert.Zero(t, res.TotalDocs)
			assert.Empty(t, res.Results)
		})
	}
}

func TestExecuteRanksAndSnippets(t *testing.T) {
	ex := NewStatic(newEngine(t, indexer.MethodInverted))

	res, err := ex.Execute(context.Background(), "cat", Options{Num: 5, SnippetNum: 1, SnippetLen: 100})
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, 3, res.TotalPositions)
	assert.Equal(t, uint32(0), res.Results[0].DocID, "two hits rank first")
	assert.Equal(t, 2, res.Results[0].HitPos)
	require.Len(t, res.Results[0].Snippets, 1)
	assert.Equal(t, uint32(4), res.Results[0].Snippets[0].Offset)
	assert.Equal(t, "cat sat on the cat mat", res.Results[0].Snippets[0].Text)

	assert.Equal(t, uint32(2), res.Results[1].DocID)
	assert.Equal(t, "cat napped", res.Results[1].Snippets[0].Text, "guard byte trimmed")
}

func TestExecuteLimitsResults(t *testing.T) {
	ex := NewStatic(newEngine(t, indexer.MethodSuffixArray))

	res, err := ex.Execute(context.Background(), "a", Options{Num: 1, SnippetNum: 0, SnippetLen: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalDocs)
	require.Len(t, res.Results, 1)
	assert.Empty(t, res.Results[0].Snippets)
}

func TestExecuteNoMatch(t *testing.T) {
	ex := NewStatic(newEngine(t, indexer.MethodOneGram))

	res, err := ex.Execute(context.Background(), "cat zebra", Options{Num: 5})
	require.NoError(t, err)
	assert.Zero(t, res.TotalDocs)
	assert.Empty(t, res.Results)

	res, err = ex.Execute(context.Background(), "   ", Options{Num: 5})
	require.NoError(t, err)
	assert.Zero(t, res.TotalDocs)
}

func TestExecuteWithoutIndex(t *testing.T) {
	ex := New(func() Index { return nil })

	_, err := ex.Execute(context.Background(), "cat", Options{Num: 5})
	assert.ErrorIs(t, err, apperrors.ErrNotReady)

	_, err = ex.Search(context.Background(), "cat")
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
}

func TestExecuteUnbuiltIndex(t *testing.T) {
	e, err := indexer.NewEngine(indexer.MethodInverted, "none")
	require.NoError(t, err)
	require.NoError(t, e.AddDocument("d", []byte("cat")))

	_, err = NewStatic(e).Execute(context.Background(), "cat", Options{Num: 5})
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic(newEngine(t, indexer.MethodInverted)).Execute(ctx, "cat", Options{Num: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteRecordsMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	ex := NewStatic(newEngine(t, indexer.MethodInverted))
	ex.SetMetrics(m)

	_, err := ex.Execute(context.Background(), "cat", Options{Num: 5})
	require.NoError(t, err)
	_, err = ex.Execute(context.Background(), "zebra", Options{Num: 5})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
}
