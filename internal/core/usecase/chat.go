package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
)

// ChatUseCase answers legal questions: history-aware retrieval feeding a
// grounded generation step. The rewritten retrieval query is internal and
// never surfaces to the caller.
type ChatUseCase struct {
	retriever ports.ContextRetriever
	generator ports.AnswerGenerator
}

func NewChatUseCase(retriever ports.ContextRetriever, generator ports.AnswerGenerator) *ChatUseCase {
	return &ChatUseCase{retriever: retriever, generator: generator}
}

func (uc *ChatUseCase) Answer(ctx context.Context, question string, history []domain.ChatMessage) (*domain.Answer, error) {
	sources, err := uc.retrieveForQuestion(ctx, question, history)
	if err != nil {
		return nil, err
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, history, sources)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{Text: text, Sources: sources}, nil
}

// AnswerStream emits the retrieval result once, before any generation
// token, so consumers can render citations immediately.
func (uc *ChatUseCase) AnswerStream(
	ctx context.Context,
	question string,
	history []domain.ChatMessage,
	emit func(domain.StreamEvent) error,
) error {
	sources, err := uc.retrieveForQuestion(ctx, question, history)
	if err != nil {
		return err
	}

	if err := emit(domain.StreamEvent{Type: domain.EventSources, Sources: sources}); err != nil {
		return err
	}

	err = uc.generator.StreamAnswer(ctx, question, history, sources, func(token string) error {
		return emit(domain.StreamEvent{Type: domain.EventToken, Token: token})
	})
	if err != nil {
		return fmt.Errorf("stream answer: %w", err)
	}

	return emit(domain.StreamEvent{Type: domain.EventDone})
}

func (uc *ChatUseCase) retrieveForQuestion(ctx context.Context, question string, history []domain.ChatMessage) ([]domain.SourceDocument, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("empty question"))
	}

	query := question
	if len(history) > 0 {
		rewritten, err := uc.generator.RewriteQuestion(ctx, question, history)
		if err != nil {
			// The raw question still retrieves something useful.
			slog.Warn("question_rewrite_failed", "error", err)
		} else if strings.TrimSpace(rewritten) != "" {
			query = strings.TrimSpace(rewritten)
		}
	}

	sources, err := uc.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return sources, nil
}
