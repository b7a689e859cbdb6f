package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/bootstrap"
	"github.com/duongtruongbinh/legal-rag/internal/config"
	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/observability/logging"
	"github.com/duongtruongbinh/legal-rag/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Observers{Ingest: workerMetrics})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:         ":" + cfg.WorkerMetricsPort,
		Handler:      workerMetrics.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// An in-flight run should finish even if its triggering request has
	// long been answered, so runs get the process context, not the
	// request context.
	trigger := func(context.Context) (domain.IngestionState, error) {
		return app.IngestUC.Start(ctx)
	}
	status := func(context.Context) domain.IngestionState {
		return app.IngestUC.State()
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeIngestion(ctx, trigger, status); err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
