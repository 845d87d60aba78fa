package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/consult-booking/cmd/mainconfig"
	"github.com/wolfman30/consult-booking/internal/api/router"
	appconfig "github.com/wolfman30/consult-booking/internal/config"
	"github.com/wolfman30/consult-booking/internal/http/handlers"
	"github.com/wolfman30/consult-booking/internal/observability/metrics"
	"github.com/wolfman30/consult-booking/internal/organizer"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

func main() {
	if err := mainconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting consult-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"meeting_api", cfg.MeetingAPIBaseURL,
	)

	backend, err := mainconfig.NewSessionBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	metricsHandler, wizardMetrics := setupWizardMetrics()
	meetingClient := mainconfig.NewMeetingClient(cfg, logger, wizardMetrics)

	defaultUser, err := organizer.LoadFile(cfg.SessionUserFile)
	if err != nil {
		logger.Warn("ignoring unreadable session user file", "error", err)
	}

	// Initialize handlers
	wizardHandler := handlers.NewWizardHandler(handlers.WizardHandlerConfig{
		Store:         backend.Store,
		Submitter:     meetingClient,
		Metrics:       wizardMetrics,
		Logger:        logger,
		DefaultUser:   defaultUser,
		WizardOptions: mainconfig.WizardOptions(cfg, logger),
	})
	var healthHandler *handlers.HealthHandler
	if backend.Ping != nil {
		healthHandler = handlers.NewHealthHandler(handlers.PingFunc(backend.Ping))
	}

	// Setup router
	r := router.New(newRouterConfig(cfg, logger, wizardHandler, healthHandler, metricsHandler))

	// Create HTTP server. Submissions wait on the remote API, so writes get more room.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupWizardMetrics() (http.Handler, *metrics.WizardMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewWizardMetrics(reg)
}

func newRouterConfig(cfg *appconfig.Config, logger *logging.Logger, wizard *handlers.WizardHandler, health *handlers.HealthHandler, metricsHandler http.Handler) *router.Config {
	return &router.Config{
		Logger:             logger,
		WizardHandler:      wizard,
		HealthHandler:      health,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		OrganizerJWTSecret: cfg.OrganizerJWTSecret,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
}
