package domain

// RawPerformancePayload is the one-shot snapshot taken after the load event.
// It is produced once by the extractor and consumed once by the normalizer.
type RawPerformancePayload struct {
	Legacy          *LegacyTiming
	Navigation      []NavigationEntry
	Resources       []ResourceEntry
	Paint           []PaintEntry
	InstrumentedLCP *float64
	InstrumentedCLS float64
	Now             float64
}

// NavigationEntry mirrors PerformanceNavigationTiming. Missing fields are 0,
// which is also what the browser reports for phases that did not happen.
type NavigationEntry struct {
	StartTime                float64 `json:"startTime"`
	RedirectStart            float64 `json:"redirectStart"`
	RedirectEnd              float64 `json:"redirectEnd"`
	DomainLookupStart        float64 `json:"domainLookupStart"`
	DomainLookupEnd          float64 `json:"domainLookupEnd"`
	ConnectStart             float64 `json:"connectStart"`
	SecureConnectionStart    float64 `json:"secureConnectionStart"`
	ConnectEnd               float64 `json:"connectEnd"`
	RequestStart             float64 `json:"requestStart"`
	ResponseStart            float64 `json:"responseStart"`
	ResponseEnd              float64 `json:"responseEnd"`
	DOMInteractive           float64 `json:"domInteractive"`
	DOMContentLoadedEventEnd float64 `json:"domContentLoadedEventEnd"`
	LoadEventEnd             float64 `json:"loadEventEnd"`
}

// LegacyTiming mirrors the deprecated performance.timing object. Values are
// epoch milliseconds.
type LegacyTiming struct {
	NavigationStart          float64 `json:"navigationStart"`
	DomainLookupStart        float64 `json:"domainLookupStart"`
	DomainLookupEnd          float64 `json:"domainLookupEnd"`
	ConnectStart             float64 `json:"connectStart"`
	ConnectEnd               float64 `json:"connectEnd"`
	RequestStart             float64 `json:"requestStart"`
	ResponseStart            float64 `json:"responseStart"`
	DOMContentLoadedEventEnd float64 `json:"domContentLoadedEventEnd"`
	LoadEventEnd             float64 `json:"loadEventEnd"`
}

type ResourceEntry struct {
	Name          string
	InitiatorType string
	Duration      float64
	TransferSize  int64
}

type PaintEntry struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
}

const (
	PaintFirstPaint           = "first-paint"
	PaintFirstContentfulPaint = "first-contentful-paint"
)

// TimingSource is the shape of navigation timing data found in a payload:
// NavigationTiming, LegacyTimingSource or NoTiming.
type TimingSource interface {
	timingSource()
}

type NavigationTiming struct {
	Entry NavigationEntry
	Paint []PaintEntry
}

type LegacyTimingSource struct {
	Timing LegacyTiming
}

type NoTiming struct{}

func (NavigationTiming) timingSource()   {}
func (LegacyTimingSource) timingSource() {}
func (NoTiming) timingSource()           {}

// TimingSource picks the best timing data available: the first navigation
// entry, then the legacy timing object, then nothing.
func (p *RawPerformancePayload) TimingSource() TimingSource {
	switch {
	case len(p.Navigation) > 0:
		return NavigationTiming{Entry: p.Navigation[0], Paint: p.Paint}
	case p.Legacy != nil:
		return LegacyTimingSource{Timing: *p.Legacy}
	default:
		return NoTiming{}
	}
}
