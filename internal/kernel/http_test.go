package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/reqid"
	"github.com/shashiranjanraj/ordersvc/pkg/response"
	"github.com/shashiranjanraj/ordersvc/pkg/router"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func newKernel(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return New(ctx, Options{}, func(r *router.Router) {
		r.Get("/api", "health", func(w http.ResponseWriter, _ *http.Request) {
			response.Success(w, map[string]string{"message": "API is working"})
		})
		r.Get("/boom", "", func(http.ResponseWriter, *http.Request) { panic("boom") })
	}).Handler()
}

func TestKernel(t *testing.T) {
	h := newKernel(t)

	t.Run("routes carry a request id", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/api")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(reqid.Header))
	})

	t.Run("unknown path is a JSON 404", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":{"message":"Not Found"}}`, rec.Body.String())
	})

	t.Run("wrong method is a JSON 405", func(t *testing.T) {
		rec := serve(t, h, http.MethodDelete, "/api")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Contains(t, rec.Body.String(), "Method Not Allowed")
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no anonymous file listing", func(t *testing.T) {
		for _, path := range []string{"/storage/", "/storage/invoices/", "/storage/invoices/invoice_1.html"} {
			rec := serve(t, h, http.MethodGet, path)
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
			assert.NotContains(t, rec.Body.String(), "<a href", path)
		}
	})
}

func TestPanicIsLoggedWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewJSONHandler(&buf, nil))
	defer func() { logger.L = prev }()

	rec := serve(t, newKernel(t), http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	id := rec.Header().Get(reqid.Header)
	require.NotEmpty(t, id)

	var panicLine map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "panic recovered" {
			panicLine = entry
		}
	}
	require.NotNil(t, panicLine, buf.String())
	assert.Equal(t, id, panicLine["request_id"])
}
