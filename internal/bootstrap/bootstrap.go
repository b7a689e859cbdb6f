package bootstrap

import (
	"context"
	"fmt"

	"github.com/duongtruongbinh/legal-rag/internal/config"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
	"github.com/duongtruongbinh/legal-rag/internal/core/usecase"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/chunking"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/inference/tei"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/llm/gemini"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/queue/nats"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/repository/postgres"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/resilience"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/source/jsonl"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/vector/qdrant"
)

// App wires the full dependency graph once; both binaries pick the
// pieces they serve. The API uses ChatUC and Queue, the worker uses
// IngestUC and Queue.
type App struct {
	Config config.Config

	Queue    *nats.Queue
	ChatUC   ports.LegalQueryService
	IngestUC *usecase.IngestUseCase

	closeFn func()
}

// Observers carries the optional progress and degradation hooks each
// binary wants wired into the use cases. Nil fields stay unobserved.
type Observers struct {
	Ingest   usecase.IngestObserver
	Retrieve usecase.RetrieveObserver
}

func New(ctx context.Context, cfg config.Config, observers Observers) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	parents := postgres.NewParentStore(db)
	if err := parents.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := tei.NewEmbedder(
		tei.NewWithOptions(cfg.EmbedURL, tei.Options{ResilienceExecutor: executor}),
		cfg.EmbedDimensions,
	)
	reranker := tei.NewReranker(
		tei.NewWithOptions(cfg.RerankURL, tei.Options{ResilienceExecutor: executor}),
	)
	generator := gemini.NewWithOptions(cfg.GeminiModel, cfg.GeminiAPIKey, gemini.Options{
		ResilienceExecutor: executor,
	})

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbedDimensions)
	sparse := qdrant.NewSparseEncoder()

	retrieveUC := usecase.NewRetrieveUseCase(embedder, sparse, index, reranker, parents, observers.Retrieve, usecase.RetrieveConfig{
		TopK:          cfg.RetrievalTopK,
		TopN:          cfg.RerankTopN,
		RerankEnabled: cfg.RerankEnabled,
		MatchMode:     usecase.ParentMatchMode(cfg.ParentMatchMode),
	})
	chatUC := usecase.NewChatUseCase(retrieveUC, generator)

	ingestUC := usecase.NewIngestUseCase(
		jsonl.New(cfg.CorpusPath),
		chunking.NewSplitter(chunking.Mode(cfg.SplitterMode), cfg.ParentChunkSize, cfg.ParentChunkOverlap),
		chunking.NewSplitter(chunking.Mode(cfg.SplitterMode), cfg.ChildChunkSize, cfg.ChildChunkOverlap),
		embedder,
		sparse,
		index,
		parents,
		usecase.NewJobState(),
		observers.Ingest,
		usecase.IngestConfig{
			BatchSize:  cfg.IngestBatchSize,
			Workers:    cfg.IngestWorkers,
			Collection: cfg.QdrantCollection,
		},
	)

	return &App{
		Config: cfg,

		Queue:    queue,
		ChatUC:   chatUC,
		IngestUC: ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
