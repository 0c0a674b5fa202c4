package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "json")

	slog.Info("hidden")
	slog.Warn("shown", "doc_id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"doc_id":7`)
}

func TestFromContextCarriesRequestID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "text")

	ctx := WithRequestID(context.Background(), "req-1")
	FromContext(ctx).Info("query")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Empty(t, RequestID(context.Background()))
}
