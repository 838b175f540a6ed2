package services

import (
	"perfprobe/internal/core/domain"
)

// Normalize turns a raw performance payload into a metrics record. It never
// fails: fields that cannot be computed are left nil, and negative durations
// are passed through as measured.
func Normalize(payload *domain.RawPerformancePayload) *domain.MetricsRecord {
	metrics := &domain.MetricsRecord{}
	if payload == nil {
		metrics.ResourceSample = []domain.ResourceSummary{}
		return metrics
	}

	switch src := payload.TimingSource().(type) {
	case domain.NavigationTiming:
		applyNavigationTiming(metrics, src)
	case domain.LegacyTimingSource:
		applyLegacyTiming(metrics, src.Timing)
	case domain.NoTiming:
	}

	applyResources(metrics, payload.Resources)

	metrics.LCP = payload.InstrumentedLCP
	metrics.CLS = payload.InstrumentedCLS

	return metrics
}

func applyNavigationTiming(m *domain.MetricsRecord, src domain.NavigationTiming) {
	nav := src.Entry

	m.RedirectTime = ms(nav.RedirectEnd - nav.RedirectStart)
	m.DNSLookup = ms(nav.DomainLookupEnd - nav.DomainLookupStart)
	m.TCPConnect = ms(nav.ConnectEnd - nav.ConnectStart)
	m.TLSTime = ms(tlsTime(nav))
	m.TTFB = ms(nav.ResponseStart - nav.StartTime)
	m.ResponseTime = ms(nav.ResponseEnd - nav.ResponseStart)
	m.DOMContentLoadedEvent = ms(nav.DOMContentLoadedEventEnd - nav.StartTime)
	m.LoadEvent = ms(nav.LoadEventEnd - nav.StartTime)
	m.DOMInteractive = ms(nav.DOMInteractive - nav.StartTime)

	for _, p := range src.Paint {
		switch p.Name {
		case domain.PaintFirstPaint:
			m.FirstPaint = ms(p.StartTime)
		case domain.PaintFirstContentfulPaint:
			m.FirstContentfulPaint = ms(p.StartTime)
		}
	}
}

// tlsTime is 0 when no secure connection was made. A handshake that started
// at exactly 0 is indistinguishable from no handshake.
func tlsTime(nav domain.NavigationEntry) float64 {
	if nav.SecureConnectionStart == 0 {
		return 0
	}
	return nav.ConnectEnd - nav.SecureConnectionStart
}

// applyLegacyTiming fills the subset performance.timing can answer. TTFB is
// measured from requestStart since the legacy baseline is navigationStart,
// not the start of the request.
func applyLegacyTiming(m *domain.MetricsRecord, t domain.LegacyTiming) {
	m.DNSLookup = ms(t.DomainLookupEnd - t.DomainLookupStart)
	m.TCPConnect = ms(t.ConnectEnd - t.ConnectStart)
	m.TTFB = ms(t.ResponseStart - t.RequestStart)
	m.DOMContentLoadedEvent = ms(t.DOMContentLoadedEventEnd - t.NavigationStart)
	m.LoadEvent = ms(t.LoadEventEnd - t.NavigationStart)
}

func applyResources(m *domain.MetricsRecord, resources []domain.ResourceEntry) {
	m.TotalRequests = len(resources)

	var total int64
	for _, r := range resources {
		total += r.TransferSize
	}
	m.TotalTransferBytes = total

	n := min(len(resources), domain.ResourceSampleLimit)
	sample := make([]domain.ResourceSummary, 0, n)
	for _, r := range resources[:n] {
		sample = append(sample, domain.ResourceSummary{
			Name:          r.Name,
			InitiatorType: r.InitiatorType,
			Duration:      r.Duration,
			TransferSize:  r.TransferSize,
		})
	}
	m.ResourceSample = sample
}

func ms(v float64) *float64 {
	return &v
}
