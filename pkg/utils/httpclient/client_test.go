package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func fastClient(retries int) *Client {
	c := NewClient(2*time.Second, retries)
	c.backoff = time.Millisecond
	return c
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"input":"hi"}`, string(body))
		_, _ = w.Write([]byte(`{"echo":"hi"}`))
	}))
	defer srv.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	err := fastClient(0).PostJSON(context.Background(), srv.URL, map[string]string{"input": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Echo)
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NotEmpty(t, body, "body must be replayed on retry")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, fastClient(2).PostJSON(context.Background(), srv.URL, map[string]int{"n": 1}, nil))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSONClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	err := fastClient(3).PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostJSONGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := fastClient(1).PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestInjectTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := fastClient(0)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	c.injectTraceContext(req)
	assert.Empty(t, req.Header.Get("traceparent"))

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	req = req.WithContext(ctx)
	c.injectTraceContext(req)
	assert.Contains(t, req.Header.Get("traceparent"), span.SpanContext().TraceID().String())
}
