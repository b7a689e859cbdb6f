package httpadapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

func parseSSEEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var event map[string]any
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("decode sse event %q: %v", payload, err)
		}
		events = append(events, event)
	}
	return events
}

func TestChatStreamEmitsSourcesThenTokensThenDone(t *testing.T) {
	chat := &fakeChatService{events: []domain.StreamEvent{
		{Type: domain.EventSources, Sources: []domain.SourceDocument{{
			Content: "Điều 5. Nội dung",
			Title:   "Luật X",
			Score:   0.8,
		}}},
		{Type: domain.EventToken, Token: "Xin "},
		{Type: domain.EventToken, Token: "chào"},
		{Type: domain.EventDone},
	}}
	handler := newTestRouter(chat, &fakeIngestQueue{}, Options{})

	res := postJSONRequest(t, handler, "/v1/chat/stream", map[string]any{"query": "q"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	events := parseSSEEvents(t, res.Body.String())
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %v", len(events), events)
	}
	if events[0]["type"] != "sources" {
		t.Fatalf("first event should be sources, got %v", events[0])
	}
	if events[1]["type"] != "token" || events[1]["data"] != "Xin " {
		t.Fatalf("unexpected token event: %v", events[1])
	}
	if events[3]["type"] != "done" {
		t.Fatalf("last event should be done, got %v", events[3])
	}

	sources, ok := events[0]["data"].([]any)
	if !ok || len(sources) != 1 {
		t.Fatalf("sources payload = %v", events[0]["data"])
	}
}

func TestChatStreamTruncatesDisplayedSources(t *testing.T) {
	long := strings.Repeat("một đoạn văn bản dài ", 80)
	chat := &fakeChatService{events: []domain.StreamEvent{
		{Type: domain.EventSources, Sources: []domain.SourceDocument{{Content: long}}},
		{Type: domain.EventDone},
	}}
	handler := newTestRouter(chat, &fakeIngestQueue{}, Options{})

	res := postJSONRequest(t, handler, "/v1/chat/stream", map[string]any{"query": "q"})
	events := parseSSEEvents(t, res.Body.String())
	source := events[0]["data"].([]any)[0].(map[string]any)
	content, _ := source["content"].(string)
	if got := len([]rune(content)); got > 401 {
		t.Fatalf("streamed source not truncated: %d runes", got)
	}
}

func TestChatStreamValidatesBeforeStreaming(t *testing.T) {
	handler := newTestRouter(&fakeChatService{}, &fakeIngestQueue{}, Options{})

	res := postJSONRequest(t, handler, "/v1/chat/stream", map[string]any{"query": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if bytes.Contains(res.Body.Bytes(), []byte("data:")) {
		t.Fatalf("validation failure must not start a stream")
	}
}

func TestChatStreamEmitsErrorEventOnFailure(t *testing.T) {
	chat := &fakeChatService{
		events: []domain.StreamEvent{
			{Type: domain.EventSources},
			{Type: domain.EventToken, Token: "a"},
		},
		streamErr: domain.WrapError(domain.ErrTemporary, "stream answer", bytes.ErrTooLarge),
	}
	handler := newTestRouter(chat, &fakeIngestQueue{}, Options{})

	res := postJSONRequest(t, handler, "/v1/chat/stream", map[string]any{"query": "q"})
	events := parseSSEEvents(t, res.Body.String())
	last := events[len(events)-1]
	if last["type"] != "error" {
		t.Fatalf("expected trailing error event, got %v", last)
	}
}
