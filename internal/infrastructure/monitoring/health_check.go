package monitoring

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"perfprobe/pkg/circuitbreaker"
	"perfprobe/pkg/utils"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthChecker struct {
	checks []HealthCheck
	mu     sync.RWMutex
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make([]HealthCheck, 0),
	}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:    name,
		Check:   check,
		Timeout: timeout,
	})
}

// AddGateCheck verifies the session gate backend is reachable.
func (h *HealthChecker) AddGateCheck(check func(ctx context.Context) error, timeout time.Duration) {
	h.AddCheck("session_gate", check, timeout)
}

// AddBreakerCheck reports unhealthy while browser launches are failing
// fast. Once openTimeout has elapsed the next request is a probe, so the
// check passes again.
func (h *HealthChecker) AddBreakerCheck(cb *circuitbreaker.CircuitBreaker, openTimeout time.Duration) {
	h.AddCheck("browser_breaker", func(context.Context) error {
		stats := cb.GetStats()
		if stats.State == circuitbreaker.StateOpen && utils.Since(stats.StateChangeTime) < openTimeout {
			return fmt.Errorf("circuit breaker %s since %s", stats.State, utils.FormatTimestamp(stats.StateChangeTime))
		}
		return nil
	}, time.Second)
}

// AddBrowserBinaryCheck verifies a configured Chromium path resolves.
// An empty path defers to chromedp's own lookup and always passes.
func (h *HealthChecker) AddBrowserBinaryCheck(execPath string) {
	h.AddCheck("browser_binary", func(context.Context) error {
		if execPath == "" {
			return nil
		}
		if _, err := exec.LookPath(execPath); err != nil {
			return fmt.Errorf("browser binary: %w", err)
		}
		return nil
	}, time.Second)
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: utils.FormatTimestamp(utils.Now()),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		if err := runCheck(ctx, check); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[check.Name] = err.Error()
		} else {
			status.Checks[check.Name] = StatusHealthy
		}
	}

	return status
}

func runCheck(ctx context.Context, check HealthCheck) error {
	if check.Timeout <= 0 {
		return check.Check(ctx)
	}
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()
	return check.Check(checkCtx)
}
