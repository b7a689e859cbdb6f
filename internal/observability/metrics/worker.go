package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// WorkerMetrics instruments the ingestion pipeline. It satisfies the
// ingest use case's observer interface.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	batchTotal     *prometheus.CounterVec
	chunksIngested *prometheus.CounterVec
	runTotal       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runChunks      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "batch_total",
			Help:      "Total processed ingestion batches by status.",
		},
		[]string{"service", "status"},
	)
	chunksIngested := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "chunks_ingested_total",
			Help:      "Total child chunks written to the index.",
		},
		[]string{"service"},
	)
	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "run_total",
			Help:      "Total finished ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Full ingestion run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"service", "status"},
	)
	runChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "run_chunks",
			Help:      "Distribution of child chunks generated per run.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		},
		[]string{"service"},
	)

	registry.MustRegister(batchTotal, chunksIngested, runTotal, runDuration, runChunks)

	return &WorkerMetrics{
		registry:       registry,
		service:        service,
		batchTotal:     batchTotal,
		chunksIngested: chunksIngested,
		runTotal:       runTotal,
		runDuration:    runDuration,
		runChunks:      runChunks,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) BatchDone(ingested int, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	m.batchTotal.WithLabelValues(m.service, status).Inc()
	if ingested > 0 {
		m.chunksIngested.WithLabelValues(m.service).Add(float64(ingested))
	}
}

func (m *WorkerMetrics) RunDone(report domain.IngestionReport, duration time.Duration) {
	m.runTotal.WithLabelValues(m.service, string(report.Status)).Inc()
	m.runDuration.WithLabelValues(m.service, string(report.Status)).Observe(duration.Seconds())
	m.runChunks.WithLabelValues(m.service).Observe(float64(report.TotalChunks))
}
