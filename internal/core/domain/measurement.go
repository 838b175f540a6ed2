package domain

import "time"

const DefaultNavigationTimeout = 30 * time.Second

type MeasurementRequest struct {
	URL      string
	Headless bool
	Timeout  time.Duration
}

// MeasurementResult is the envelope returned for every measurement.
// Exactly one of Error and Metrics is set.
type MeasurementResult struct {
	URL       string         `json:"url"`
	Timestamp string         `json:"timestamp"`
	Error     *string        `json:"error"`
	Metrics   *MetricsRecord `json:"metrics,omitempty"`
}

func (r *MeasurementResult) Failed() bool {
	return r.Error != nil
}
