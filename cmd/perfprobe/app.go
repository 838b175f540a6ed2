package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"perfprobe/internal/core/ports"
	"perfprobe/internal/core/services"
	"perfprobe/internal/infrastructure/browser"
	"perfprobe/internal/infrastructure/gate"
	"perfprobe/internal/infrastructure/monitoring"
	"perfprobe/pkg/circuitbreaker"
	"perfprobe/pkg/config"
	"perfprobe/pkg/logger"
	"perfprobe/pkg/tracing"
)

// app holds the wired service graph shared by serve and measure.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	log       *zap.SugaredLogger
	tracer    *tracing.TracerProvider
	registry  *prometheus.Registry
	collector *monitoring.PrometheusCollector
	breaker   *circuitbreaker.CircuitBreaker
	gate      ports.SessionGate
	health    *monitoring.HealthChecker
	service   ports.MeasurementService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	log := zapLogger.Sugar()

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "perfprobe",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := monitoring.NewPrometheusCollector(registry)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold:    cfg.Breaker.FailureThreshold,
		SuccessThreshold:    cfg.Breaker.SuccessThreshold,
		Timeout:             cfg.Breaker.OpenTimeout,
		MaxRequestsHalfOpen: cfg.Breaker.MaxRequestsHalfOpen,
	})
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("browser circuit breaker state changed", "from", from.String(), "to", to.String())
		collector.RecordBreakerState(to.String())
	})

	sessionGate := gate.New(ctx, cfg, log)

	health := monitoring.NewHealthChecker()
	health.AddGateCheck(sessionGate.HealthCheck, 2*time.Second)
	health.AddBreakerCheck(breaker, cfg.Breaker.OpenTimeout)
	health.AddBrowserBinaryCheck(cfg.Browser.ExecPath)

	service := services.NewMeasurementService(
		browser.NewChromeDriver(log.Named("browser")),
		sessionGate,
		breaker,
		collector,
		zapLogger,
		services.MeasurementConfig{
			Browser: ports.BrowserOptions{
				ExecPath:  cfg.Browser.ExecPath,
				UserAgent: cfg.Browser.UserAgent,
				NoSandbox: cfg.Browser.NoSandbox,
				Width:     cfg.Browser.WindowWidth,
				Height:    cfg.Browser.WindowHeight,

				StartupTimeout:    cfg.Browser.StartupTimeout,
				ExtractionTimeout: cfg.Browser.ExtractionTimeout,
			},
			DefaultTimeout: cfg.Browser.NavigationTimeout,
			MaxTimeout:     cfg.Browser.MaxNavigationTimeout,
		},
	)

	return &app{
		cfg:       cfg,
		logger:    zapLogger,
		log:       log,
		tracer:    tracer,
		registry:  registry,
		collector: collector,
		breaker:   breaker,
		gate:      sessionGate,
		health:    health,
		service:   service,
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.gate.Close(); err != nil {
		a.log.Errorw("error closing session gate", "error", err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.log.Errorw("error shutting down tracer", "error", err)
	}
	_ = a.logger.Sync()
}
