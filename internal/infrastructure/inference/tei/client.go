package tei

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/resilience"
)

// Client talks to one text-embeddings-inference instance. TEI serves a
// single model per process, so the embedder and the reranker each get
// their own Client pointed at their own base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

func NewWithOptions(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Embedder produces dense vectors via TEI's /embed endpoint.
type Embedder struct {
	client     *Client
	dimensions int
}

func NewEmbedder(client *Client, dimensions int) *Embedder {
	return &Embedder{client: client, dimensions: dimensions}
}

func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"inputs":   texts,
		"truncate": true,
	}

	var response [][]float32
	if err := e.client.call(ctx, "/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response) != len(texts) {
		return nil, fmt.Errorf("embed result mismatch: %d vectors for %d texts", len(response), len(texts))
	}
	return response, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Reranker scores query/text pairs via TEI's /rerank endpoint. It asks
// for raw model scores so the caller owns the logit calibration.
type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

func (r *Reranker) ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"query":      query,
		"texts":      texts,
		"raw_scores": true,
		"truncate":   true,
	}

	var response []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := r.client.call(ctx, "/rerank", request, &response, "rerank"); err != nil {
		return nil, err
	}
	if len(response) != len(texts) {
		return nil, fmt.Errorf("rerank result mismatch: %d scores for %d texts", len(response), len(texts))
	}

	// TEI returns results sorted by score; restore input order.
	logits := make([]float64, len(texts))
	for _, item := range response {
		if item.Index < 0 || item.Index >= len(logits) {
			return nil, fmt.Errorf("rerank index %d out of range", item.Index)
		}
		logits[item.Index] = item.Score
	}
	return logits, nil
}

func (c *Client) call(ctx context.Context, path string, payload, out any, operation string) error {
	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "tei."+operation, fn, classifyTEIError)
	} else {
		err = fn(ctx)
	}
	return wrapTemporaryIfNeeded("tei "+operation, err)
}
