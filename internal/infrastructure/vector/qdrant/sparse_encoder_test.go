package qdrant

import (
	"strings"
	"testing"
)

func TestTokenizeKeepsVietnameseDiacritics(t *testing.T) {
	got := tokenize("Điều 15. Quyền sử dụng đất!")
	want := []string{"điều", "15", "quyền", "sử", "dụng", "đất"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEncodeQuerySortedIndicesAndBoundedValues(t *testing.T) {
	enc := NewSparseEncoder()
	vec := enc.EncodeQuery("thời hạn sử dụng đất nông nghiệp là bao nhiêu năm")
	if len(vec.Indices) == 0 {
		t.Fatalf("expected non-empty vector")
	}
	if len(vec.Indices) != len(vec.Values) {
		t.Fatalf("indices/values length mismatch: %d/%d", len(vec.Indices), len(vec.Values))
	}
	for i := 1; i < len(vec.Indices); i++ {
		if vec.Indices[i-1] >= vec.Indices[i] {
			t.Fatalf("indices not strictly ascending at %d: %v", i, vec.Indices)
		}
	}
	for _, v := range vec.Values {
		if v <= 0 || float64(v) > bm25K1+1.0 {
			t.Fatalf("weight %v outside (0, k+1]", v)
		}
	}
}

func TestEncodeDocumentRepeatedTermsSaturate(t *testing.T) {
	enc := NewSparseEncoder()
	once := enc.EncodeDocument("đất")
	many := enc.EncodeDocument(strings.Repeat("đất ", 50))
	if len(once.Values) != 1 || len(many.Values) != 1 {
		t.Fatalf("expected single-term vectors, got %d/%d", len(once.Values), len(many.Values))
	}
	if many.Values[0] <= once.Values[0] {
		t.Fatalf("repeated term should weigh more: %v vs %v", many.Values[0], once.Values[0])
	}
	if float64(many.Values[0]) >= bm25K1+1.0 {
		t.Fatalf("weight should saturate below k+1, got %v", many.Values[0])
	}
}

func TestEncodeDocumentAndQueryAgreeOnIndices(t *testing.T) {
	enc := NewSparseEncoder()
	doc := enc.EncodeDocument("hợp đồng lao động")
	query := enc.EncodeQuery("hợp đồng lao động")
	if len(doc.Indices) != len(query.Indices) {
		t.Fatalf("term sets differ: %d/%d", len(doc.Indices), len(query.Indices))
	}
	for i := range doc.Indices {
		if doc.Indices[i] != query.Indices[i] {
			t.Fatalf("index mismatch at %d: %v vs %v", i, doc.Indices, query.Indices)
		}
	}
}

func TestEncodeQueryEmptyTextYieldsEmptyVector(t *testing.T) {
	enc := NewSparseEncoder()
	vec := enc.EncodeQuery("   ...   ")
	if len(vec.Indices) != 0 || len(vec.Values) != 0 {
		t.Fatalf("expected empty vector, got %v", vec)
	}
}

func TestHashTokenNeverZero(t *testing.T) {
	for _, token := range []string{"a", "đất", "luật", "2024"} {
		if hashToken(token) == 0 {
			t.Fatalf("hashToken(%q) = 0", token)
		}
	}
}
