package tei

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

func TestEmbedSendsInputsAndReturnsVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		inputs, _ := payload["inputs"].([]any)
		if len(inputs) != 2 {
			t.Fatalf("expected 2 inputs, got %v", payload["inputs"])
		}
		_, _ = w.Write([]byte(`[[0.1,0.2],[0.3,0.4]]`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL), 2)
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if embedder.Dimensions() != 2 {
		t.Fatalf("Dimensions() = %d, want 2", embedder.Dimensions())
	}
}

func TestEmbedRejectsResultCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[0.1,0.2]]`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL), 2)
	_, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestScoreBatchRestoresInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if raw, _ := payload["raw_scores"].(bool); !raw {
			t.Fatalf("expected raw_scores=true, got %v", payload["raw_scores"])
		}
		// Sorted by score, out of input order.
		_, _ = w.Write([]byte(`[{"index":2,"score":4.5},{"index":0,"score":-1.2},{"index":1,"score":-3.0}]`))
	}))
	defer server.Close()

	reranker := NewReranker(New(server.URL))
	logits, err := reranker.ScoreBatch(context.Background(), "q", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ScoreBatch() error = %v", err)
	}
	want := []float64{-1.2, -3.0, 4.5}
	for i := range want {
		if logits[i] != want[i] {
			t.Fatalf("logits = %v, want %v", logits, want)
		}
	}
}

func TestScoreBatchRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":5,"score":1.0}]`))
	}))
	defer server.Close()

	reranker := NewReranker(New(server.URL))
	_, err := reranker.ScoreBatch(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatalf("expected index error")
	}
}

func TestCallWrapsRetryableStatusAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL), 2)
	_, err := embedder.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestCallLeavesClientErrorsUnwrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "input too long", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL), 2)
	_, err := embedder.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("client error should not be temporary: %v", err)
	}
}
