package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("order_id", "o-1")

	log.Info("order created")
	log.Warn("invoice delayed")

	assert.Contains(t, debugBuf.String(), "order created")
	assert.Contains(t, debugBuf.String(), "invoice delayed")
	assert.NotContains(t, warnBuf.String(), "order created")
	assert.Contains(t, warnBuf.String(), `"order_id":"o-1"`)
}

func TestWithCtx(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))

	tagged := L.With("request_id", "abc")
	ctx := InjectLogger(context.Background(), tagged)
	assert.Same(t, tagged, WithCtx(ctx))
}

func TestLogDocumentPromotesOrderKeys(t *testing.T) {
	doc := LogDocument{Attrs: map[string]any{}}
	doc.set("order_id", slog.StringValue("o-9"))
	doc.set("job", slog.StringValue("generateInvoice"))
	doc.set("attempt", slog.IntValue(2))

	assert.Equal(t, "o-9", doc.OrderID)
	assert.Equal(t, "generateInvoice", doc.Job)
	assert.Equal(t, int64(2), doc.Attrs["attempt"])
}
