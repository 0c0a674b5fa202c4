// Package e2e runs the ingest → build → reload → search pipeline in one
// process. Kafka is replaced by an in-memory topic; everything else is the
// production code path.
package e2e

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/middleware"
)

// topic is an in-memory stand-in for a Kafka topic.
type topic struct {
	mu       sync.Mutex
	messages [][]byte
}

func (t *topic) Publish(_ context.Context, events ...kafka.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range events {
		b, err := json.Marshal(ev.Value)
		if err != nil {
			return err
		}
		t.messages = append(t.messages, b)
	}
	return nil
}

// source replays the topic into a handler, then idles until cancelled.
type source struct {
	topic   *topic
	handler kafka.MessageHandler
}

func (s *source) Start(ctx context.Context) error {
	s.topic.mu.Lock()
	msgs := append([][]byte(nil), s.topic.messages...)
	s.topic.mu.Unlock()
	for _, m := range msgs {
		if err := s.handler(ctx, nil, m); errors.Is(err, kafka.ErrStop) {
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

func ingest(t *testing.T, srv *httptest.Server, title, body string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"title": title, "body": body})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/v1/documents", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func search(t *testing.T, srv *httptest.Server, q string) executor.SearchResult {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/v1/search?q=" + url.QueryEscape(q))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res executor.SearchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestPipeline(t *testing.T) {
	for _, method := range []string{indexer.MethodTwoGram, indexer.MethodSuffixArrayUTF8} {
		t.Run(method, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "minise.idx")
			ingestTopic := &topic{}

			ingestMux := http.NewServeMux()
			ingesthandler.New(publisher.New(nil, ingestTopic, nil)).Register(ingestMux)
			ingestSrv := httptest.NewServer(middleware.Chain(ingestMux, middleware.RequestID))
			defer ingestSrv.Close()

			ingest(t, ingestSrv, "haiku", "古池や蛙飛び込む水の音")
			ingest(t, ingestSrv, "pond", "the old pond, a frog jumps in")
			ingest(t, ingestSrv, "frogs", "frog after frog")

			engine, err := indexer.NewEngine(method, "vb")
			require.NoError(t, err)
			ic := consumer.New(engine.AddDocument, consumer.Options{Idle: 100 * time.Millisecond})
			n, err := ic.Drain(ctx, &source{topic: ingestTopic, handler: ic.Handle})
			require.NoError(t, err)
			require.Equal(t, 3, n)
			require.NoError(t, engine.Save(path))

			holder := reload.New(path, nil)
			require.NoError(t, holder.Load(ctx, "startup"))

			searchMux := http.NewServeMux()
			cfg := config.SearchConfig{Num: 5, SnippetNum: 2, SnippetLen: 12, MaxResults: 10, Timeout: time.Second}
			searchhandler.New(executor.New(holder.Index), holder, nil, cfg).Register(searchMux)
			searchSrv := httptest.NewServer(searchMux)
			defer searchSrv.Close()

			res := search(t, searchSrv, "frog")
			assert.Equal(t, 2, res.TotalDocs)
			require.Len(t, res.Results, 2)
			assert.Equal(t, "frogs", res.Results[0].Title, "two hits outrank one")
			assert.Equal(t, "frog after f", res.Results[0].Snippets[0].Text)

			res = search(t, searchSrv, "蛙飛")
			require.Len(t, res.Results, 1)
			assert.Equal(t, "haiku", res.Results[0].Title)
			assert.Equal(t, uint32(9), res.Results[0].Snippets[0].Offset)

			res = search(t, searchSrv, "frog pond")
			require.Len(t, res.Results, 1)
			assert.Equal(t, "pond", res.Results[0].Title)
		})
	}
}
