package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

// Source reads the legal corpus from a JSON-lines file. Each line is
// one document export with _id, title and text, matching the layout of
// the zalo-ai-legal-text-retrieval-vn corpus dump.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

type record struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *Source) Load(ctx context.Context) ([]domain.Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSourceUnavailable, "open corpus file", err)
	}
	defer f.Close()

	var docs []domain.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse corpus line %d: %w", lineNo, err)
		}
		if rec.ID == "" || strings.TrimSpace(rec.Text) == "" {
			continue
		}

		docs = append(docs, domain.Document{
			ID:    rec.ID,
			Title: strings.TrimSpace(rec.Title),
			Text:  rec.Text,
			LawID: domain.DeriveLawID(rec.ID),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrSourceUnavailable, "read corpus file", err)
	}
	return docs, nil
}
