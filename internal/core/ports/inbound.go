package ports

import (
	"context"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// ContextRetriever is the single retrieve(query) → ranked documents
// contract consumed by the generation stage.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.SourceDocument, error)
}

// LegalQueryService answers legal questions grounded in retrieved
// statute text.
type LegalQueryService interface {
	Answer(ctx context.Context, question string, history []domain.ChatMessage) (*domain.Answer, error)
	AnswerStream(ctx context.Context, question string, history []domain.ChatMessage, emit func(domain.StreamEvent) error) error
}

// CorpusIngestor runs the corpus-ingestion pipeline. Only one run may be
// active process-wide; concurrent triggers are rejected.
type CorpusIngestor interface {
	Run(ctx context.Context) (domain.IngestionReport, error)
	State() domain.IngestionState
}
