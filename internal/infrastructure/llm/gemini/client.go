package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the Gemini REST API. It implements the answer
// generation boundary: question rewriting for history-aware retrieval,
// grounded answers, and token streaming over SSE.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL            string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(model, apiKey string) *Client {
	return NewWithOptions(model, apiKey, Options{})
}

func NewWithOptions(model, apiKey string, options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// RewriteQuestion condenses the chat history plus the latest question
// into one standalone legal question for retrieval. Without history the
// question passes through untouched.
func (c *Client) RewriteQuestion(ctx context.Context, question string, history []domain.ChatMessage) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	request := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: contextualizePrompt}}},
		Contents:          append(historyToContents(history), content{Role: "user", Parts: []part{{Text: question}}}),
	}

	text, err := c.generate(ctx, request, "rewrite")
	if err != nil {
		return "", err
	}
	rewritten := strings.TrimSpace(text)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}

func (c *Client) GenerateAnswer(ctx context.Context, question string, history []domain.ChatMessage, sources []domain.SourceDocument) (string, error) {
	return c.generate(ctx, c.answerRequest(question, history, sources), "generate")
}

func (c *Client) StreamAnswer(
	ctx context.Context,
	question string,
	history []domain.ChatMessage,
	sources []domain.SourceDocument,
	onToken func(string) error,
) error {
	return c.stream(ctx, c.answerRequest(question, history, sources), onToken)
}

func (c *Client) answerRequest(question string, history []domain.ChatMessage, sources []domain.SourceDocument) generateRequest {
	return generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: buildQAPrompt(sources)}}},
		Contents:          append(historyToContents(history), content{Role: "user", Parts: []part{{Text: question}}}),
	}
}

func (c *Client) generate(ctx context.Context, request generateRequest, operation string) (string, error) {
	var text string
	fn := func(callCtx context.Context) error {
		got, err := c.postGenerate(callCtx, request, operation)
		if err != nil {
			return err
		}
		text = got
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini."+operation, fn, classifyGeminiError)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("gemini "+operation, err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) stream(ctx context.Context, request generateRequest, onToken func(string) error) error {
	// Streaming is not retried: tokens already delivered cannot be
	// taken back, so a mid-stream failure surfaces to the caller.
	if err := c.postStream(ctx, request, onToken); err != nil {
		return wrapTemporaryIfNeeded("gemini stream", err)
	}
	return nil
}

func historyToContents(history []domain.ChatMessage) []content {
	out := make([]content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		out = append(out, content{Role: role, Parts: []part{{Text: text}}})
	}
	return out
}

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("empty candidates")
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
