package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfprobe/internal/core/domain"
	"perfprobe/internal/core/ports"
	"perfprobe/pkg/circuitbreaker"
)

func f64(v float64) *float64 { return &v }

func TestPrometheusCollector_RecordMeasurement(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordMeasurement(ports.OutcomeSuccess, 2*time.Second, &domain.MetricsRecord{
		LCP:                f64(1800),
		TTFB:               f64(120),
		CLS:                0.05,
		TotalRequests:      12,
		TotalTransferBytes: 4096,
	})
	c.RecordMeasurement(ports.OutcomeTimeout, 30*time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.measurementsTotal.WithLabelValues(ports.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.measurementsTotal.WithLabelValues(ports.OutcomeTimeout)))
	assert.Equal(t, 4096.0, testutil.ToFloat64(c.transferBytes))

	count, err := testutil.GatherAndCount(reg, "perfprobe_page_lcp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusCollector_Sessions(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordSessionOpened()
	c.RecordSessionOpened()
	c.RecordSessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsTotal))
}

func TestPrometheusCollector_BreakerState(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordBreakerState(circuitbreaker.StateOpen.String())
	assert.Equal(t, 2.0, testutil.ToFloat64(c.breakerState))

	c.RecordBreakerState(circuitbreaker.StateHalfOpen.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerState))

	c.RecordBreakerState(circuitbreaker.StateClosed.String())
	assert.Equal(t, 0.0, testutil.ToFloat64(c.breakerState))
}

func ready(h *HealthChecker) bool {
	return h.CheckAll(context.Background()).Status == StatusHealthy
}

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker()
	h.AddGateCheck(func(context.Context) error { return nil }, time.Second)
	assert.True(t, ready(h))

	h.AddCheck("failing", func(context.Context) error { return errors.New("down") }, time.Second)
	status := h.CheckAll(context.Background())

	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["session_gate"])
	assert.Equal(t, "down", status.Checks["failing"])
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond)

	assert.False(t, ready(h))
}

func TestHealthChecker_BreakerCheck(t *testing.T) {
	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	})
	h := NewHealthChecker()
	h.AddBreakerCheck(cb, time.Minute)
	assert.True(t, ready(h))

	_, _ = circuitbreaker.Execute(cb, func() (struct{}, error) { return struct{}{}, errors.New("launch failed") })
	assert.False(t, ready(h))
}

func TestHealthChecker_BrowserBinaryCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddBrowserBinaryCheck("")
	assert.True(t, ready(h))

	h.AddBrowserBinaryCheck("/nonexistent/perfprobe-chrome")
	assert.False(t, ready(h))
}
