package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"perfprobe/internal/core/domain"
	"perfprobe/internal/core/ports"
	"perfprobe/pkg/circuitbreaker"
	apperrors "perfprobe/pkg/errors"
	"perfprobe/pkg/logger"
	"perfprobe/pkg/tracing"
	"perfprobe/pkg/utils"
	"perfprobe/pkg/validation"
)

type MeasurementConfig struct {
	Browser        ports.BrowserOptions // Headless is overridden per request
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

type measurementService struct {
	driver   ports.BrowserDriver
	gate     ports.SessionGate
	breaker  *circuitbreaker.CircuitBreaker
	recorder ports.MeasurementRecorder
	logger   *logger.ContextLogger
	cfg      MeasurementConfig
	now      func() time.Time
}

func NewMeasurementService(
	driver ports.BrowserDriver,
	gate ports.SessionGate,
	breaker *circuitbreaker.CircuitBreaker,
	recorder ports.MeasurementRecorder,
	log *zap.Logger,
	cfg MeasurementConfig,
) ports.MeasurementService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = domain.DefaultNavigationTimeout
	}
	if cfg.MaxTimeout < cfg.DefaultTimeout {
		cfg.MaxTimeout = cfg.DefaultTimeout
	}
	return &measurementService{
		driver:   driver,
		gate:     gate,
		breaker:  breaker,
		recorder: recorder,
		logger:   logger.NewContextLogger(log),
		cfg:      cfg,
		now:      utils.Now,
	}
}

// Measure loads one page in a fresh browser and returns its envelope.
// Input problems and an unavailable session gate are returned as errors;
// everything that goes wrong once the browser is involved ends up in the
// envelope instead.
func (s *measurementService) Measure(ctx context.Context, req domain.MeasurementRequest) (*domain.MeasurementResult, error) {
	url, timeout, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.TraceMeasurement(ctx, url, req.Headless)
	defer span.End()

	waitStart := s.now()
	release, err := s.gate.Acquire(ctx)
	s.recorder.RecordGateWait(s.now().Sub(waitStart))
	if err != nil {
		s.recorder.RecordMeasurement(ports.OutcomeUnavailable, 0, nil)
		tracing.RecordError(ctx, err)
		s.logger.LogWarn(ctx, "session gate unavailable", zap.String("url", url), zap.Error(err))
		return nil, apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable,
			"browser session busy, try again later", http.StatusServiceUnavailable)
	}
	defer release()

	start := s.now()
	metrics, err := s.run(ctx, url, req.Headless, timeout)
	elapsed := s.now().Sub(start)

	outcome := outcomeOf(err)
	s.recorder.RecordMeasurement(outcome, elapsed, metrics)
	tracing.AddSpanAttributes(ctx, tracing.OutcomeKey.String(outcome), tracing.DurationKey.Int64(elapsed.Milliseconds()))

	switch {
	case outcome == ports.OutcomeError:
		tracing.RecordError(ctx, err)
		s.logger.LogError(ctx, err, "measurement failed",
			zap.String("url", url),
			zap.String("duration", utils.FormatDuration(elapsed)),
		)
	case err != nil:
		tracing.RecordError(ctx, err)
		s.logger.LogWarn(ctx, "measurement failed",
			zap.String("url", url),
			zap.String("outcome", outcome),
			zap.String("duration", utils.FormatDuration(elapsed)),
			zap.Error(err),
		)
	default:
		if metrics.LCP != nil {
			tracing.AddSpanAttributes(ctx, tracing.LCPKey.Float64(*metrics.LCP))
		}
		tracing.AddSpanAttributes(ctx, tracing.CLSKey.Float64(metrics.CLS), tracing.RequestsKey.Int(metrics.TotalRequests))
		s.logger.LogInfo(ctx, "measurement completed",
			zap.String("url", url),
			zap.String("duration", utils.FormatDuration(elapsed)),
			zap.Int("requests", metrics.TotalRequests),
		)
	}

	return BuildResult(url, metrics, err, s.now()), nil
}

func (s *measurementService) validate(req domain.MeasurementRequest) (string, time.Duration, error) {
	url := validation.NormalizeURL(utils.SanitizeString(req.URL))
	if url == "" {
		return "", 0, apperrors.WrapError(domain.ErrMissingURL, apperrors.ErrCodeInvalidInput,
			domain.ErrMissingURL.Error(), http.StatusBadRequest)
	}
	if err := validation.ValidateURL(url); err != nil {
		return "", 0, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	}
	if err := validation.ValidateTimeout(req.Timeout, s.cfg.MaxTimeout); err != nil {
		return "", 0, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest).
			WithContext("max_timeout_ms", s.cfg.MaxTimeout.Milliseconds())
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = s.cfg.DefaultTimeout
	}
	return url, timeout, nil
}

// run owns the browser session: instrumentation strictly before
// navigation, exactly one extraction after load, teardown on every path.
func (s *measurementService) run(ctx context.Context, url string, headless bool, timeout time.Duration) (*domain.MetricsRecord, error) {
	opts := s.cfg.Browser
	opts.Headless = headless

	session, err := circuitbreaker.Execute(s.breaker, func() (ports.BrowserSession, error) {
		return s.driver.Open(ctx, opts)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: %v", domain.ErrBrowserUnavailable, err)
		}
		return nil, err
	}
	s.recorder.RecordSessionOpened()
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.LogWarn(ctx, "failed to close browser session", zap.Error(err))
		}
		s.recorder.RecordSessionClosed()
	}()

	if err := s.step(ctx, "instrument", session.Instrument); err != nil {
		return nil, err
	}

	err = s.step(ctx, "navigate", func(ctx context.Context) error {
		return session.Navigate(ctx, url, timeout)
	})
	if err != nil {
		return nil, err
	}

	var payload *domain.RawPerformancePayload
	err = s.step(ctx, "extract", func(ctx context.Context) error {
		payload, err = session.Extract(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return Normalize(payload), nil
}

func (s *measurementService) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.TraceBrowserStep(ctx, name)
	defer span.End()

	start := s.now()
	if err := fn(ctx); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	s.logger.LogDebug(ctx, "browser step completed",
		zap.String("step", name),
		zap.String("duration", utils.FormatDuration(s.now().Sub(start))),
	)
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return ports.OutcomeSuccess
	case errors.Is(err, domain.ErrNavigationTimeout):
		return ports.OutcomeTimeout
	case errors.Is(err, domain.ErrBrowserUnavailable):
		return ports.OutcomeUnavailable
	default:
		return ports.OutcomeError
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordSessionOpened() {}
func (noopRecorder) RecordSessionClosed() {}
func (noopRecorder) RecordMeasurement(string, time.Duration, *domain.MetricsRecord) {}
func (noopRecorder) RecordGateWait(time.Duration) {}
func (noopRecorder) RecordBreakerState(string) {}
