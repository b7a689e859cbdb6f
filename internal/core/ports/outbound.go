package ports

import (
	"context"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// DocumentSource yields the raw legal corpus as a finite, re-playable
// sequence, consumed only during ingestion.
type DocumentSource interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// Chunker splits raw text into ordered chunks. Implementations are
// selected by configuration (structure-aware vs generic).
type Chunker interface {
	Split(text string) []string
}

// DenseEmbedder maps text to fixed-length semantic vectors.
type DenseEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// SparseEncoder maps text to a weighted-term lexical vector. Pure and
// stateless; document and query encodings may weight terms differently.
type SparseEncoder interface {
	EncodeDocument(text string) domain.SparseVector
	EncodeQuery(text string) domain.SparseVector
}

// HybridIndex is the vector store holding child chunks under two named
// vector spaces. Fusion of the dense and sparse rankings is the index's
// job; candidates come back with native (un-normalized) scores.
type HybridIndex interface {
	EnsureCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, chunks []domain.ChildChunk, dense [][]float32, sparse []domain.SparseVector) error
	Query(ctx context.Context, dense []float32, sparse domain.SparseVector, k int) ([]domain.ScoredChunk, error)
}

// ParentStore is the key-value layout for parent chunks, keyed by
// parent_id. Reset clears it between ingestion runs.
type ParentStore interface {
	Put(ctx context.Context, parents []domain.ParentChunk) error
	Get(ctx context.Context, parentID string) (*domain.ParentChunk, error)
	Reset(ctx context.Context) error
}

// Reranker scores (query, candidate) pairs in one batched model
// invocation, returning raw cross-encoder logits.
type Reranker interface {
	ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error)
}

// AnswerGenerator is the LLM boundary: question rewriting for
// history-aware retrieval, and grounded answer generation.
type AnswerGenerator interface {
	RewriteQuestion(ctx context.Context, question string, history []domain.ChatMessage) (string, error)
	GenerateAnswer(ctx context.Context, question string, history []domain.ChatMessage, sources []domain.SourceDocument) (string, error)
	StreamAnswer(ctx context.Context, question string, history []domain.ChatMessage, sources []domain.SourceDocument, onToken func(string) error) error
}

// IngestionQueue carries ingestion triggers and status queries between
// the API process and the ingestion worker.
type IngestionQueue interface {
	RequestIngestion(ctx context.Context) (domain.IngestionState, error)
	FetchStatus(ctx context.Context) (domain.IngestionState, error)
	SubscribeIngestion(
		ctx context.Context,
		trigger func(context.Context) (domain.IngestionState, error),
		status func(context.Context) domain.IngestionState,
	) error
}
