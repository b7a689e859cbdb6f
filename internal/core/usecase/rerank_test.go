package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

type stubReranker struct {
	logits   []float64
	err      error
	gotQuery string
	gotTexts []string
	calls    int
}

func (s *stubReranker) ScoreBatch(_ context.Context, query string, texts []string) ([]float64, error) {
	s.calls++
	s.gotQuery = query
	s.gotTexts = texts
	if s.err != nil {
		return nil, s.err
	}
	return s.logits, nil
}

func scoredChunk(text, parentID string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		ChildChunk: domain.ChildChunk{
			Text:       text,
			ParentID:   parentID,
			ParentText: "parent of " + text,
			DocumentID: "doc+dieu-1",
		},
		Score: score,
	}
}

func TestRerankScoringCalibratesLogits(t *testing.T) {
	reranker := &stubReranker{logits: []float64{0, 2.0, -2.0}}
	strategy := rerankScoring{reranker: reranker}

	candidates := []domain.ScoredChunk{
		scoredChunk("a", "p1", 0.9),
		scoredChunk("b", "p2", 0.1),
		scoredChunk("c", "p3", 0.5),
	}

	scored, err := strategy.Score(context.Background(), "nồng độ cồn", candidates)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if reranker.gotQuery != "nồng độ cồn" {
		t.Fatalf("query = %q", reranker.gotQuery)
	}
	if len(reranker.gotTexts) != 3 || reranker.gotTexts[1] != "b" {
		t.Fatalf("texts = %v", reranker.gotTexts)
	}

	wantScores := []float64{0.5, sigmoid(2.0), sigmoid(-2.0)}
	for i, want := range wantScores {
		if math.Abs(scored[i].Score-want) > 1e-9 {
			t.Fatalf("scored[%d] = %v, want %v", i, scored[i].Score, want)
		}
	}
	// Native index scores must not leak through.
	if scored[0].Score == 0.9 {
		t.Fatal("native score survived reranking")
	}
}

func TestRerankScoringWrapsFailure(t *testing.T) {
	strategy := rerankScoring{reranker: &stubReranker{err: errors.New("model overloaded")}}

	_, err := strategy.Score(context.Background(), "q", []domain.ScoredChunk{scoredChunk("a", "p1", 1)})
	if !domain.IsKind(err, domain.ErrRerankerUnavailable) {
		t.Fatalf("expected ErrRerankerUnavailable, got %v", err)
	}
}

func TestRerankScoringRejectsCountMismatch(t *testing.T) {
	strategy := rerankScoring{reranker: &stubReranker{logits: []float64{1.0}}}

	candidates := []domain.ScoredChunk{
		scoredChunk("a", "p1", 1),
		scoredChunk("b", "p2", 1),
	}
	_, err := strategy.Score(context.Background(), "q", candidates)
	if !domain.IsKind(err, domain.ErrRerankerUnavailable) {
		t.Fatalf("expected ErrRerankerUnavailable on mismatch, got %v", err)
	}
}

func TestRerankScoringEmptyCandidates(t *testing.T) {
	reranker := &stubReranker{}
	strategy := rerankScoring{reranker: reranker}

	scored, err := strategy.Score(context.Background(), "q", nil)
	if err != nil || scored != nil {
		t.Fatalf("got %v, %v; want nil, nil", scored, err)
	}
	if reranker.calls != 0 {
		t.Fatal("reranker must not be called for an empty pool")
	}
}

func TestSimilarityScoringNormalizes(t *testing.T) {
	strategy := similarityScoring{}

	candidates := []domain.ScoredChunk{
		scoredChunk("a", "p1", 3.0),
		scoredChunk("b", "p2", 0.7),
		scoredChunk("c", "p3", -1.0),
	}
	scored, err := strategy.Score(context.Background(), "q", candidates)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	wantScores := []float64{0.25, 0.7, 0.5}
	for i, want := range wantScores {
		if math.Abs(scored[i].Score-want) > 1e-9 {
			t.Fatalf("scored[%d] = %v, want %v", i, scored[i].Score, want)
		}
	}
}

func TestSortByScoreStableOnTies(t *testing.T) {
	chunks := []domain.ScoredChunk{
		scoredChunk("first", "p1", 0.5),
		scoredChunk("second", "p2", 0.5),
		scoredChunk("third", "p3", 0.9),
	}
	sortByScore(chunks)

	if chunks[0].Text != "third" {
		t.Fatalf("chunks[0] = %q, want third", chunks[0].Text)
	}
	if chunks[1].Text != "first" || chunks[2].Text != "second" {
		t.Fatalf("tie order not preserved: %q, %q", chunks[1].Text, chunks[2].Text)
	}
}
