package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
	"github.com/duongtruongbinh/legal-rag/internal/observability/metrics"
)

const maxQuestionLength = 2000

// Router is the public API surface: question answering (buffered and
// streamed) plus the ingestion trigger proxied to the worker.
type Router struct {
	chat    ports.LegalQueryService
	queue   ports.IngestionQueue
	metrics *metrics.HTTPServerMetrics
	opts    Options
}

type Options struct {
	Service          string
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

func NewRouter(
	chat ports.LegalQueryService,
	queue ports.IngestionQueue,
	serverMetrics *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	return &Router{
		chat:    chat,
		queue:   queue,
		metrics: serverMetrics,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.postChat)
	mux.HandleFunc("/v1/chat/stream", rt.postChatStream)
	mux.HandleFunc("/v1/ingest", rt.postIngest)
	mux.HandleFunc("/v1/ingest/status", rt.getIngestStatus)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.Service, handler)
	}
	if rt.opts.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureWait)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Query   string               `json:"query"`
	History []domain.ChatMessage `json:"history"`
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return chatRequest{}, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return chatRequest{}, false
	}
	if len(req.Query) > maxQuestionLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query too long"})
		return chatRequest{}, false
	}
	for _, msg := range req.History {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "history role must be user or assistant"})
			return chatRequest{}, false
		}
	}
	return req, true
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := rt.chat.Answer(r.Context(), req.Query, req.History)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(rt.opts.Service, "chat", len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":  answer.Text,
		"sources": displaySources(answer.Sources),
	})
}

func (rt *Router) postIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	state, err := rt.queue.RequestIngestion(r.Context())
	if err != nil {
		if domain.IsKind(err, domain.ErrIngestionRunning) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": "ingestion already in progress",
				"state": state,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"state":  state,
	})
}

func (rt *Router) getIngestStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	state, err := rt.queue.FetchStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// displaySources truncates source content for presentation; retrieval
// and generation always see the full text.
func displaySources(sources []domain.SourceDocument) []domain.SourceDocument {
	out := make([]domain.SourceDocument, len(sources))
	for i, src := range sources {
		src.Content = domain.SmartTruncate(src.Content, 400)
		out[i] = src
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
