package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "perfprobe/pkg/errors"
	"perfprobe/pkg/retry"
)

func TestMeasure_SendsBodyAndDecodesEnvelope(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/measure", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://example.com","timestamp":"2024-01-01T00:00:00.000Z","error":null,
			"metrics":{"ttfb":12.5,"cls":0.1,"total_requests":3,"total_transfer_bytes":2048,"resource_sample":[]}}`))
	}))
	defer srv.Close()

	headless := false
	result, err := New(srv.URL+"/").Measure(context.Background(), MeasureRequest{
		URL:      "example.com",
		Headless: &headless,
		Timeout:  45 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "example.com", got["url"])
	assert.Equal(t, false, got["headless"])
	assert.Equal(t, float64(45000), got["timeout_ms"])

	assert.False(t, result.Failed())
	require.NotNil(t, result.Metrics)
	require.NotNil(t, result.Metrics.TTFB)
	assert.Equal(t, 12.5, *result.Metrics.TTFB)
	assert.Equal(t, int64(2048), result.Metrics.TotalTransferBytes)
}

func TestMeasure_OmitsUnsetOptions(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"url":"https://example.com","timestamp":"t","error":"Timeout loading page: x"}`))
	}))
	defer srv.Close()

	result, err := New(srv.URL).Measure(context.Background(), MeasureRequest{URL: "example.com"})
	require.NoError(t, err)

	assert.NotContains(t, got, "headless")
	assert.NotContains(t, got, "timeout_ms")
	assert.True(t, result.Failed())
	assert.Nil(t, result.Metrics)
}

func TestMeasure_RejectedRequestIsAppError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"no url provided","code":"INVALID_INPUT"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}))
	_, err := c.Measure(context.Background(), MeasureRequest{})
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
	assert.Equal(t, "no url provided", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.ErrorIs(t, err, ErrRequestRejected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMeasure_RetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"browser session busy","code":"SERVICE_UNAVAILABLE"}`))
			return
		}
		_, _ = w.Write([]byte(`{"url":"https://example.com","timestamp":"t","error":null,"metrics":{"cls":0,"total_requests":0,"total_transfer_bytes":0,"resource_sample":[]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1}))
	result, err := c.Measure(context.Background(), MeasureRequest{URL: "example.com"})
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMeasure_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Measure(context.Background(), MeasureRequest{URL: "example.com"})
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
	assert.Equal(t, "bad gateway", appErr.Message)
	assert.NotErrorIs(t, err, ErrRequestRejected)
}

func TestReady(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ready", r.URL.Path)
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	assert.NoError(t, c.Ready(context.Background()))

	ready.Store(false)
	err := c.Ready(context.Background())
	assert.ErrorContains(t, err, "HTTP 503")
}
