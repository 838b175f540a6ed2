package client

// Result is the envelope the service returns for every measurement. Exactly
// one of Error and Metrics is set.
type Result struct {
	URL       string   `json:"url"`
	Timestamp string   `json:"timestamp"`
	Error     *string  `json:"error"`
	Metrics   *Metrics `json:"metrics,omitempty"`
}

func (r *Result) Failed() bool {
	return r.Error != nil
}

// Metrics holds durations in milliseconds. A nil duration was not reported
// by the page.
type Metrics struct {
	RedirectTime          *float64 `json:"redirect_time,omitempty"`
	DNSLookup             *float64 `json:"dns_lookup,omitempty"`
	TCPConnect            *float64 `json:"tcp_connect,omitempty"`
	TLSTime               *float64 `json:"tls_time,omitempty"`
	TTFB                  *float64 `json:"ttfb,omitempty"`
	ResponseTime          *float64 `json:"response_time,omitempty"`
	DOMContentLoadedEvent *float64 `json:"dom_content_loaded_event,omitempty"`
	LoadEvent             *float64 `json:"load_event,omitempty"`
	DOMInteractive        *float64 `json:"dom_interactive,omitempty"`
	FirstPaint            *float64 `json:"first_paint,omitempty"`
	FirstContentfulPaint  *float64 `json:"first_contentful_paint,omitempty"`
	LCP                   *float64 `json:"lcp,omitempty"`
	CLS                   float64  `json:"cls"`

	TotalRequests      int        `json:"total_requests"`
	TotalTransferBytes int64      `json:"total_transfer_bytes"`
	ResourceSample     []Resource `json:"resource_sample"`
}

type Resource struct {
	Name          string  `json:"name"`
	InitiatorType string  `json:"initiator_type"`
	Duration      float64 `json:"duration"`
	TransferSize  int64   `json:"transfer_size"`
}
