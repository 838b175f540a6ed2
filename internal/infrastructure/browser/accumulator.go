package browser

import (
	"encoding/json"
	"fmt"
	"sync"
)

// LCPCandidate is one largest-contentful-paint entry as reported in-page.
type LCPCandidate struct {
	RenderTime float64 `json:"renderTime"`
	LoadTime   float64 `json:"loadTime"`
	StartTime  float64 `json:"startTime"`
	Size       float64 `json:"size"`
}

// Value is the first non-zero of renderTime, loadTime, startTime and size,
// or renderTime when all are zero.
func (c LCPCandidate) Value() float64 {
	for _, v := range []float64{c.RenderTime, c.LoadTime, c.StartTime, c.Size} {
		if v != 0 {
			return v
		}
	}
	return c.RenderTime
}

// LayoutShift is one layout-shift entry as reported in-page.
type LayoutShift struct {
	Value          float64 `json:"value"`
	HadRecentInput bool    `json:"hadRecentInput"`
}

type report struct {
	Type string `json:"type"`
	LCPCandidate
	LayoutShift
}

const (
	reportInit        = "init"
	reportLCP         = "lcp"
	reportLayoutShift = "layout-shift"
)

// Accumulator collects LCP and CLS for a single page session. It is fed
// from CDP binding events and read once through Take.
type Accumulator struct {
	mu     sync.Mutex
	lcp    *float64
	cls    float64
	sealed bool
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Handle decodes a binding payload and applies it.
func (a *Accumulator) Handle(payload string) error {
	var r report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return fmt.Errorf("decode instrumentation report: %w", err)
	}

	switch r.Type {
	case reportInit:
		a.Reset()
	case reportLCP:
		a.ObserveLCP(r.LCPCandidate)
	case reportLayoutShift:
		a.ObserveLayoutShift(r.LayoutShift)
	default:
		return fmt.Errorf("unknown instrumentation report %q", r.Type)
	}
	return nil
}

// Reset discards values from a previous document, e.g. after a redirect.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return
	}
	a.lcp = nil
	a.cls = 0
}

// ObserveLCP records a candidate. The latest candidate wins.
func (a *Accumulator) ObserveLCP(c LCPCandidate) {
	v := c.Value()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return
	}
	a.lcp = &v
}

// ObserveLayoutShift adds the shift to CLS unless it followed user input.
func (a *Accumulator) ObserveLayoutShift(s LayoutShift) {
	if s.HadRecentInput {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return
	}
	a.cls += s.Value
}

// Take returns the accumulated values and seals the accumulator. Later
// observations are dropped.
func (a *Accumulator) Take() (lcp *float64, cls float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	return a.lcp, a.cls
}
