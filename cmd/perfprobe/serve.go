package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httphandlers "perfprobe/internal/handlers/http"
	"perfprobe/internal/infrastructure/middleware"
	"perfprobe/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the measurement HTTP service",
	Example: `  perfprobe serve
  perfprobe serve --config /etc/perfprobe/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      newRouter(a),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infow("starting perfprobe server",
			"address", cfg.Server.Address,
			"headless_default", cfg.Browser.Headless,
			"navigation_timeout", cfg.Browser.NavigationTimeout.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Infow("shutting down perfprobe server", "uptime", time.Since(startTime).String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Errorw("error during server shutdown", "error", err)
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.Errorw("server failed", "error", err)
		return err
	}
	a.log.Info("perfprobe server stopped")
	return nil
}

func newRouter(a *app) *gin.Engine {
	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(a.log),
		middleware.TracingMiddleware(),
		middleware.RequestLoggerMiddleware(logger.NewContextLogger(a.logger)),
		middleware.ErrorHandlerMiddleware(a.log),
	)

	httphandlers.NewHealthHandler(a.health).SetupRoutes(router)

	if a.cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
		a.log.Info("Prometheus metrics enabled")
	}

	measure := router.Group("/")
	measure.Use(middleware.NewHTTPRateLimitMiddleware(a.cfg))
	httphandlers.NewMeasureHandler(a.service, a.cfg.Browser.Headless).SetupRoutes(measure)

	return router
}
