package chunking

import (
	"fmt"
	"strings"
	"testing"
)

func TestRecursiveShortTextSingleChunk(t *testing.T) {
	s := NewRecursiveSplitter(512, 100)

	chunks := s.Split("Một đoạn văn ngắn.")
	if len(chunks) != 1 || chunks[0] != "Một đoạn văn ngắn." {
		t.Fatalf("got %q", chunks)
	}
}

func TestRecursiveSplitsOnParagraphsFirst(t *testing.T) {
	para1 := strings.Repeat("đoạn một ", 18)
	para2 := strings.Repeat("đoạn hai ", 18)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	chunks := NewRecursiveSplitter(200, 0).Split(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if strings.Contains(chunks[0], "đoạn hai") || strings.Contains(chunks[1], "đoạn một") {
		t.Fatalf("paragraphs mixed: %q", chunks)
	}
}

func TestRecursiveOverlapRepeatsTail(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	text := strings.Join(words, " ")

	chunks := NewRecursiveSplitter(100, 20).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], firstWord) {
			t.Fatalf("chunk %d does not overlap its predecessor: %q / %q", i, chunks[i-1], chunks[i])
		}
	}
}

func TestRecursiveOverlapNeverExceedsBudget(t *testing.T) {
	makePara := func(word string) string {
		return strings.TrimSpace(strings.Repeat(word+" ", 12))
	}
	text := makePara("thuế") + "\n\n" + makePara("phạt") + "\n\n" + makePara("luật")

	chunks := NewRecursiveSplitter(100, 20).Split(text)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want one per paragraph", len(chunks))
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 100 {
			t.Fatalf("chunks[%d] is %d runes, over budget: %q", i, runeLen(chunk), chunk)
		}
	}
}

func TestRecursiveOverlapBudgetHeldForManySizes(t *testing.T) {
	words := make([]string, 80)
	for i := range words {
		words[i] = fmt.Sprintf("điều%02d", i)
	}
	text := strings.Join(words[:25], " ") + "\n\n" +
		strings.Join(words[25:30], " ") + "\n" +
		strings.Join(words[30:], " ")

	for _, overlap := range []int{0, 10, 30, 60} {
		chunks := NewRecursiveSplitter(90, overlap).Split(text)
		for i, chunk := range chunks {
			if runeLen(chunk) > 90 {
				t.Fatalf("overlap %d: chunks[%d] is %d runes, over budget", overlap, i, runeLen(chunk))
			}
		}
	}
}

func TestRecursiveKeepsEveryWordWithoutOverlap(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("từ%02d", i)
	}
	text := strings.Join(words[:20], " ") + "\n\n" + strings.Join(words[20:40], " ") + "\n" + strings.Join(words[40:], " ")

	chunks := NewRecursiveSplitter(120, 0).Split(text)
	joined := strings.Join(chunks, " ")
	for _, word := range words {
		if !strings.Contains(joined, word) {
			t.Fatalf("word %q lost", word)
		}
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 120 {
			t.Fatalf("chunks[%d] is %d runes, over budget", i, runeLen(chunk))
		}
	}
}

func TestRecursiveUnbrokenTokenRecursesToRunes(t *testing.T) {
	long := strings.Repeat("ký_tự", 30)

	chunks := NewRecursiveSplitter(50, 0).Split(long + " ngắn")
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want the long token cut down", len(chunks))
	}
	for i, chunk := range chunks {
		if runeLen(chunk) > 50 {
			t.Fatalf("chunks[%d] is %d runes, over budget", i, runeLen(chunk))
		}
	}
	if !strings.Contains(strings.Join(chunks, ""), long) {
		t.Fatalf("token content lost: %q", chunks)
	}
}

func TestRecursiveEmptyText(t *testing.T) {
	if chunks := NewRecursiveSplitter(100, 0).Split("   "); len(chunks) != 0 {
		t.Fatalf("got %q, want nothing", chunks)
	}
}

func TestRecursiveOverlapClampedBelowChunkSize(t *testing.T) {
	s := NewRecursiveSplitter(100, 100)
	if s.overlap >= s.chunkSize {
		t.Fatalf("overlap %d not clamped below chunk size %d", s.overlap, s.chunkSize)
	}
}

func TestNewSplitterSelectsMode(t *testing.T) {
	if _, ok := NewSplitter(ModeLegal, 512, 50).(*LegalSplitter); !ok {
		t.Fatal("legal mode must build the legal splitter")
	}
	if _, ok := NewSplitter(ModeGeneric, 512, 50).(*RecursiveSplitter); !ok {
		t.Fatal("generic mode must build the recursive splitter")
	}
	if _, ok := NewSplitter("unknown", 512, 50).(*RecursiveSplitter); !ok {
		t.Fatal("unknown modes fall back to the recursive splitter")
	}
}
