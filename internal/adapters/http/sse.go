package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// postChatStream answers over SSE: one sources event first, then token
// events, then a done event. Errors after the stream has started can
// only be logged; the status line is already on the wire.
func (rt *Router) postChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	var sourceCount, tokenCount int
	streamErr := rt.chat.AnswerStream(r.Context(), req.Query, req.History, func(event domain.StreamEvent) error {
		switch event.Type {
		case domain.EventSources:
			sourceCount = len(event.Sources)
			return writeSSE(w, flusher, map[string]any{
				"type": "sources",
				"data": displaySources(event.Sources),
			})
		case domain.EventToken:
			tokenCount++
			return writeSSE(w, flusher, map[string]any{
				"type": "token",
				"data": event.Token,
			})
		case domain.EventDone:
			return writeSSE(w, flusher, map[string]any{"type": "done"})
		default:
			return nil
		}
	})
	if streamErr != nil {
		slog.Error("chat_stream_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", streamErr,
		)
		_ = writeSSE(w, flusher, map[string]any{
			"type": "error",
			"data": "stream interrupted",
		})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(rt.opts.Service, "chat_stream", sourceCount, time.Since(start))
		rt.metrics.RecordStreamTokens(rt.opts.Service, "chat_stream", tokenCount)
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	flusher.Flush()
	return nil
}
