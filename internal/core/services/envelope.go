package services

import (
	"errors"
	"fmt"
	"time"

	"perfprobe/internal/core/domain"
	"perfprobe/pkg/utils"
)

// BuildResult wraps either metrics or an error for url. The timestamp is
// taken here, when the envelope is built.
func BuildResult(url string, metrics *domain.MetricsRecord, err error, now time.Time) *domain.MeasurementResult {
	result := &domain.MeasurementResult{
		URL:       url,
		Timestamp: utils.FormatTimestamp(now),
	}

	if err != nil {
		msg := errorMessage(err)
		result.Error = &msg
		return result
	}

	if metrics == nil {
		metrics = &domain.MetricsRecord{ResourceSample: []domain.ResourceSummary{}}
	}
	result.Metrics = metrics
	return result
}

func errorMessage(err error) string {
	if errors.Is(err, domain.ErrNavigationTimeout) {
		return fmt.Sprintf("Timeout loading page: %v", err)
	}
	return err.Error()
}
