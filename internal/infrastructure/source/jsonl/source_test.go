package jsonl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
)

func writeCorpus(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoadParsesRecordsAndDerivesLawID(t *testing.T) {
	path := writeCorpus(t, `{"_id":"05/2022/tt-bgtvt+dieu-3","title":"Thông tư 05","text":"Điều 3. Nội dung"}
{"_id":"luat-dat-dai","title":"Luật Đất đai","text":"Điều 1. Phạm vi"}
`)
	source := New(path)
	docs, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].LawID != "05/2022/tt-bgtvt" {
		t.Fatalf("LawID = %q, want id prefix before +", docs[0].LawID)
	}
	if docs[1].LawID != "luat-dat-dai" {
		t.Fatalf("LawID = %q, want whole id", docs[1].LawID)
	}
}

func TestLoadSkipsBlankLinesAndEmptyRecords(t *testing.T) {
	path := writeCorpus(t, `{"_id":"a","title":"A","text":"nội dung"}

{"_id":"","title":"no id","text":"x"}
{"_id":"b","title":"B","text":"   "}
`)
	source := New(path)
	docs, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Fatalf("expected only record a, got %+v", docs)
	}
}

func TestLoadRejectsMalformedLineWithLineNumber(t *testing.T) {
	path := writeCorpus(t, `{"_id":"a","title":"A","text":"ok"}
{not json}
`)
	source := New(path)
	_, err := source.Load(context.Background())
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestLoadMissingFileIsSourceUnavailable(t *testing.T) {
	source := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	_, err := source.Load(context.Background())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
