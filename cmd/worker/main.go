package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/construo/opsportal/internal/bootstrap"
	"github.com/construo/opsportal/internal/config"
	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/observability/logging"
	"github.com/construo/opsportal/internal/observability/metrics"
)

const serviceName = "opsportal-worker"

// The worker never executes gated operations; a deny-all authorizer keeps the
// shared wiring honest.
type denyAllAuthorizer struct{}

func (denyAllAuthorizer) HasPermission(context.Context, string, string) (bool, error) {
	return false, nil
}

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, denyAllAuthorizer{}, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(workerMetrics),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.ActivityConsumer.Run(ctx, func(handlerCtx context.Context, entry domain.ActivityEntry) error {
		workerMetrics.StartEntry()
		workerMetrics.ObserveQueueLag(serviceName, time.Since(entry.OccurredAt))
		start := time.Now()

		insertErr := app.ActivityStore.Insert(handlerCtx, entry)
		workerMetrics.FinishEntry(serviceName, time.Since(start), insertErr)
		return insertErr
	})
	if err != nil {
		logger.Error("worker subscription failed", "error", err)
		os.Exit(1)
	}
}

func metricsMux(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
