package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
)

// scoringStrategy assigns calibrated [0,1] relevance scores to the
// candidate pool of one query.
type scoringStrategy interface {
	Name() string
	Score(ctx context.Context, query string, candidates []domain.ScoredChunk) ([]domain.ScoredChunk, error)
}

// similarityScoring normalizes the index's native scores. Used when
// reranking is disabled, and as the degraded path when the reranker is
// unavailable.
type similarityScoring struct{}

func (similarityScoring) Name() string { return "similarity" }

func (similarityScoring) Score(_ context.Context, _ string, candidates []domain.ScoredChunk) ([]domain.ScoredChunk, error) {
	out := make([]domain.ScoredChunk, len(candidates))
	for i, c := range candidates {
		c.Score = normalizeScore(c.Score)
		out[i] = c
	}
	return out, nil
}

// rerankScoring scores all (query, candidate) pairs in one cross-encoder
// invocation and calibrates the logits with a sigmoid.
type rerankScoring struct {
	reranker ports.Reranker
}

func (rerankScoring) Name() string { return "rerank" }

func (s rerankScoring) Score(ctx context.Context, query string, candidates []domain.ScoredChunk) ([]domain.ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	logits, err := s.reranker.ScoreBatch(ctx, query, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRerankerUnavailable, "score candidates", err)
	}
	if len(logits) != len(candidates) {
		return nil, domain.WrapError(
			domain.ErrRerankerUnavailable,
			"score candidates",
			fmt.Errorf("logits/candidates mismatch: %d/%d", len(logits), len(candidates)),
		)
	}

	out := make([]domain.ScoredChunk, len(candidates))
	for i, c := range candidates {
		c.Score = sigmoid(logits[i])
		out[i] = c
	}
	return out, nil
}

// sortByScore orders candidates by descending score; ties keep the
// original candidate retrieval order.
func sortByScore(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}
