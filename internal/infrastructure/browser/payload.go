package browser

import (
	"encoding/json"
	"fmt"

	"perfprobe/internal/core/domain"
)

type rawResource struct {
	Name          string  `json:"name"`
	InitiatorType string  `json:"initiatorType"`
	Duration      float64 `json:"duration"`
	TransferSize  float64 `json:"transferSize"`
}

type rawSnapshot struct {
	Legacy     *domain.LegacyTiming     `json:"legacy"`
	Navigation []domain.NavigationEntry `json:"navigation"`
	Resources  []rawResource            `json:"resources"`
	Paint      []domain.PaintEntry      `json:"paint"`
	Now        float64                  `json:"now"`
}

// DecodePayload turns the extraction script's JSON result into a payload.
// Instrumented values are merged in by the caller.
func DecodePayload(data []byte) (*domain.RawPerformancePayload, error) {
	var snap rawSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode performance snapshot: %w", err)
	}

	resources := make([]domain.ResourceEntry, 0, len(snap.Resources))
	for _, r := range snap.Resources {
		resources = append(resources, domain.ResourceEntry{
			Name:          r.Name,
			InitiatorType: r.InitiatorType,
			Duration:      r.Duration,
			TransferSize:  int64(r.TransferSize),
		})
	}

	return &domain.RawPerformancePayload{
		Legacy:     snap.Legacy,
		Navigation: snap.Navigation,
		Resources:  resources,
		Paint:      snap.Paint,
		Now:        snap.Now,
	}, nil
}
