package ports

import (
	"time"

	"perfprobe/internal/core/domain"
)

type MeasurementRecorder interface {
	RecordSessionOpened()
	RecordSessionClosed()
	RecordMeasurement(outcome string, duration time.Duration, metrics *domain.MetricsRecord)
	RecordGateWait(duration time.Duration)
	RecordBreakerState(state string)
}

const (
	OutcomeSuccess     = "success"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)
