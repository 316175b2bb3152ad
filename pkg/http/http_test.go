package http

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	var got map[string]string
	var contentType string
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := Post(srv.URL).Body(map[string]string{"event": "order.placed"}).Send()
	require.NoError(t, err)
	require.NoError(t, resp.Throw())

	var out map[string]bool
	require.NoError(t, resp.JSON(&out))
	assert.True(t, out["ok"])
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "order.placed", got["event"])
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(gohttp.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(gohttp.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := Get(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		calls.Add(1)
		w.WriteHeader(gohttp.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := Get(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.ErrorContains(t, resp.Throw(), "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportErrorExhaustsAttempts(t *testing.T) {
	srv := httptest.NewServer(gohttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Get(url).Retry(2, time.Millisecond).Send()
	assert.ErrorContains(t, err, "all 2 attempts failed")
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		w.WriteHeader(gohttp.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Get(srv.URL).WithContext(ctx).Retry(5, time.Hour).Send()
	assert.ErrorIs(t, err, context.Canceled)
}
