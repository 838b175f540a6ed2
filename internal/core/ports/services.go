package ports

import (
	"context"

	"perfprobe/internal/core/domain"
)

type MeasurementService interface {
	Measure(ctx context.Context, req domain.MeasurementRequest) (*domain.MeasurementResult, error)
}

// SessionGate bounds how many browser sessions run at once. The returned
// release func must be called exactly once.
type SessionGate interface {
	Acquire(ctx context.Context) (release func(), err error)
	HealthCheck(ctx context.Context) error
	Close() error
}
