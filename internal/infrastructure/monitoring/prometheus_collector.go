package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"perfprobe/internal/core/domain"
	"perfprobe/pkg/circuitbreaker"
)

type PrometheusCollector struct {
	// Gauges
	sessionsActive prometheus.Gauge
	breakerState   prometheus.Gauge

	// Counters
	sessionsTotal     prometheus.Counter
	measurementsTotal *prometheus.CounterVec
	transferBytes     prometheus.Counter

	// Histograms
	measurementDuration *prometheus.HistogramVec
	gateWait            prometheus.Histogram
	lcpSeconds          prometheus.Histogram
	ttfbSeconds         prometheus.Histogram
	clsScore            prometheus.Histogram
	requestsPerPage     prometheus.Histogram
}

// NewPrometheusCollector registers the perfprobe metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perfprobe_browser_sessions_active",
			Help: "Number of browser sessions currently open",
		}),

		breakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perfprobe_browser_breaker_state",
			Help: "Browser launch circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),

		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "perfprobe_browser_sessions_total",
			Help: "Total number of browser sessions opened",
		}),

		measurementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perfprobe_measurements_total",
			Help: "Total number of measurements by outcome",
		}, []string{"outcome"}),

		transferBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "perfprobe_page_transfer_bytes_total",
			Help: "Total resource transfer bytes observed across measured pages",
		}),

		measurementDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perfprobe_measurement_duration_seconds",
			Help:    "Wall-clock duration of a measurement including browser startup",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"outcome"}),

		gateWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfprobe_session_gate_wait_seconds",
			Help:    "Time spent waiting for a free browser session",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),

		lcpSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfprobe_page_lcp_seconds",
			Help:    "Largest Contentful Paint of measured pages",
			Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 4, 6, 10},
		}),

		ttfbSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfprobe_page_ttfb_seconds",
			Help:    "Time to first byte of measured pages",
			Buckets: []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2},
		}),

		clsScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfprobe_page_cls",
			Help:    "Cumulative Layout Shift of measured pages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		requestsPerPage: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfprobe_page_requests",
			Help:    "Resource requests per measured page",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (p *PrometheusCollector) RecordSessionOpened() {
	p.sessionsActive.Inc()
	p.sessionsTotal.Inc()
}

func (p *PrometheusCollector) RecordSessionClosed() {
	p.sessionsActive.Dec()
}

// RecordMeasurement counts the outcome and, for successful runs, observes
// the page metrics that are present.
func (p *PrometheusCollector) RecordMeasurement(outcome string, duration time.Duration, metrics *domain.MetricsRecord) {
	p.measurementsTotal.WithLabelValues(outcome).Inc()
	p.measurementDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	if metrics == nil {
		return
	}
	if metrics.LCP != nil {
		p.lcpSeconds.Observe(*metrics.LCP / 1000)
	}
	if metrics.TTFB != nil {
		p.ttfbSeconds.Observe(*metrics.TTFB / 1000)
	}
	p.clsScore.Observe(metrics.CLS)
	p.requestsPerPage.Observe(float64(metrics.TotalRequests))
	if metrics.TotalTransferBytes > 0 {
		p.transferBytes.Add(float64(metrics.TotalTransferBytes))
	}
}

func (p *PrometheusCollector) RecordGateWait(duration time.Duration) {
	p.gateWait.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordBreakerState(state string) {
	switch state {
	case circuitbreaker.StateClosed.String():
		p.breakerState.Set(0)
	case circuitbreaker.StateHalfOpen.String():
		p.breakerState.Set(1)
	case circuitbreaker.StateOpen.String():
		p.breakerState.Set(2)
	}
}
