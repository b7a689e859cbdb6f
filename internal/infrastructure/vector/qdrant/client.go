package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"

	neutralScore = 0.5
)

// Client talks to Qdrant's HTTP API. One collection holds the child
// chunks under two named vector spaces; fusion of the dense and sparse
// rankings is delegated to Qdrant's RRF prefetch query.
type Client struct {
	baseURL    string
	collection string
	denseSize  int
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  bool
}

func New(baseURL, collection string, denseSize int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		denseSize:  denseSize,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Collection() string {
	return c.collection
}

// EnsureCollection creates the hybrid collection if it does not exist:
// one named dense space sized to the embedding model's output and one
// named sparse space with no fixed dimensionality.
func (c *Client) EnsureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	if c.ensured {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     c.denseSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if it already exists (depends on version/config).
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("qdrant ensure collection status: %s", readStatus(resp))
	}

	c.ensureMu.Lock()
	c.ensured = true
	c.ensureMu.Unlock()
	return nil
}

// UpsertChunks writes one batch of child chunks, each carrying both
// vector spaces and the payload retrieval reads back.
func (c *Client) UpsertChunks(
	ctx context.Context,
	chunks []domain.ChildChunk,
	dense [][]float32,
	sparse []domain.SparseVector,
) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(dense) || len(chunks) != len(sparse) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d/%d", len(chunks), len(dense), len(sparse))
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID: uuid.NewString(),
			Vector: map[string]any{
				denseVectorName: dense[i],
				sparseVectorName: map[string]any{
					"indices": sparse[i].Indices,
					"values":  sparse[i].Values,
				},
			},
			Payload: map[string]any{
				"text":        chunk.Text,
				"parent_id":   chunk.ParentID,
				"parent_text": chunk.ParentText,
				"document_id": chunk.DocumentID,
				"title":       chunk.Title,
				"law_id":      chunk.LawID,
				"chunk_index": chunk.ChunkIndex,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", readStatus(resp))
	}
	return nil
}

// Query runs one hybrid top-k query: dense and sparse prefetches fused
// by Qdrant's native RRF. Servers that reject the fusion query form get
// a plain dense search instead, with every hit carrying a neutral score.
func (c *Client) Query(ctx context.Context, dense []float32, sparse domain.SparseVector, k int) ([]domain.ScoredChunk, error) {
	reqBody := map[string]any{
		"prefetch": []map[string]any{
			{
				"query": dense,
				"using": denseVectorName,
				"limit": k,
			},
			{
				"query": map[string]any{
					"indices": sparse.Indices,
					"values":  sparse.Values,
				},
				"using": sparseVectorName,
				"limit": k,
			},
		},
		"query":        map[string]any{"fusion": "rrf"},
		"limit":        k,
		"with_payload": true,
	}

	points, err := c.queryPoints(ctx, reqBody)
	if err == nil {
		return pointsToChunks(points, false), nil
	}
	if domain.IsKind(err, domain.ErrIndexUnavailable) {
		return nil, err
	}

	fallback := map[string]any{
		"query":        dense,
		"using":        denseVectorName,
		"limit":        k,
		"with_payload": true,
	}
	points, ferr := c.queryPoints(ctx, fallback)
	if ferr != nil {
		return nil, ferr
	}
	return pointsToChunks(points, true), nil
}

type queryPoint struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) queryPoints(ctx context.Context, reqBody map[string]any) ([]queryPoint, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant query", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.WrapError(
			domain.ErrIndexUnavailable,
			"qdrant query",
			fmt.Errorf("status %s", readStatus(resp)),
		)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant query status: %s", readStatus(resp))
	}

	var queryResp struct {
		Result struct {
			Points []queryPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return queryResp.Result.Points, nil
}

func pointsToChunks(points []queryPoint, unscored bool) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(points))
	for _, p := range points {
		score := p.Score
		if unscored {
			score = neutralScore
		}
		out = append(out, domain.ScoredChunk{
			ChildChunk: domain.ChildChunk{
				Text:       getStringPayload(p.Payload, "text"),
				ParentID:   getStringPayload(p.Payload, "parent_id"),
				ParentText: getStringPayload(p.Payload, "parent_text"),
				DocumentID: getStringPayload(p.Payload, "document_id"),
				Title:      getStringPayload(p.Payload, "title"),
				LawID:      getStringPayload(p.Payload, "law_id"),
				ChunkIndex: getIntPayload(p.Payload, "chunk_index"),
			},
			Score: score,
		})
	}
	return out
}

func readStatus(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return resp.Status + ": " + msg
	}
	return resp.Status
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
