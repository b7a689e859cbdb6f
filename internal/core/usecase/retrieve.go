package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"context"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
)

// RetrieveConfig tunes the two-stage retrieval pipeline. TopK is the
// candidate pool handed to the reranker and is kept larger than TopN so
// reranking has something to re-order.
type RetrieveConfig struct {
	TopK          int
	TopN          int
	RerankEnabled bool
	MatchMode     ParentMatchMode
}

func (c RetrieveConfig) normalize() RetrieveConfig {
	if c.TopK <= 0 {
		c.TopK = 30
	}
	if c.TopN <= 0 {
		c.TopN = 5
	}
	if c.TopK < c.TopN {
		c.TopK = c.TopN
	}
	return c
}

// RetrieveObserver receives notifications about degraded retrieval paths.
type RetrieveObserver interface {
	RerankDegraded()
}

type nopRetrieveObserver struct{}

func (nopRetrieveObserver) RerankDegraded() {}

// RetrieveUseCase composes candidate fetch, scoring and parent resolution
// into the single retrieve(query) → ranked documents contract. The three
// stages are strictly sequential within one query.
type RetrieveUseCase struct {
	dense    ports.DenseEmbedder
	sparse   ports.SparseEncoder
	index    ports.HybridIndex
	strategy scoringStrategy
	fallback scoringStrategy
	resolver *ParentResolver
	observer RetrieveObserver
	cfg      RetrieveConfig
}

func NewRetrieveUseCase(
	dense ports.DenseEmbedder,
	sparse ports.SparseEncoder,
	index ports.HybridIndex,
	reranker ports.Reranker,
	store ports.ParentStore,
	observer RetrieveObserver,
	cfg RetrieveConfig,
) *RetrieveUseCase {
	cfg = cfg.normalize()
	if observer == nil {
		observer = nopRetrieveObserver{}
	}

	var strategy scoringStrategy = similarityScoring{}
	if cfg.RerankEnabled && reranker != nil {
		strategy = rerankScoring{reranker: reranker}
	}

	return &RetrieveUseCase{
		dense:    dense,
		sparse:   sparse,
		index:    index,
		strategy: strategy,
		fallback: similarityScoring{},
		resolver: NewParentResolver(store, cfg.MatchMode, cfg.TopN),
		observer: observer,
		cfg:      cfg,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string) ([]domain.SourceDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("empty query"))
	}

	candidates, err := uc.fetchCandidates(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scored, err := uc.strategy.Score(ctx, query, candidates)
	if err != nil {
		if !domain.IsKind(err, domain.ErrRerankerUnavailable) {
			return nil, err
		}
		// Reranker outage degrades to normalized native similarity
		// rather than failing the query.
		slog.Warn("rerank_degraded", "strategy", uc.fallback.Name(), "error", err)
		uc.observer.RerankDegraded()
		scored, err = uc.fallback.Score(ctx, query, candidates)
		if err != nil {
			return nil, err
		}
	}

	sortByScore(scored)
	return uc.resolver.Resolve(ctx, scored)
}

// fetchCandidates embeds the query into both vector spaces and runs one
// hybrid top-k query. Read-only; index failures propagate to the caller.
func (uc *RetrieveUseCase) fetchCandidates(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	denseVec, err := uc.dense.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sparseVec := uc.sparse.EncodeQuery(query)

	candidates, err := uc.index.Query(ctx, denseVec, sparseVec, uc.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("hybrid query: %w", err)
	}
	return candidates, nil
}
