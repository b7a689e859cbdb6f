package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minChunkRunes = 100

var (
	articleRe  = regexp.MustCompile(`(?i)Điều\s+\d+[a-zA-Z]?\.?\s*[^\n]*`)
	clauseRe   = regexp.MustCompile(`\d+\.\s+`)
	chapterRe  = regexp.MustCompile(`(?i)Chương\s+[IVXLCDM\d]+\.?\s*[^\n]*`)
	sentenceRe = regexp.MustCompile(`[.!?…]\s+`)
)

// LegalSplitter splits Vietnamese legal text primarily on article
// ("Điều N") boundaries, carrying the nearest preceding chapter header
// forward as context. Oversized articles recurse into clause markers
// ("N. ") and then sentence packing. A final merge pass folds fragments
// under minChunkRunes into their neighbor.
type LegalSplitter struct {
	chunkSize int
	overlap   int
}

func NewLegalSplitter(chunkSize, overlap int) *LegalSplitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	return &LegalSplitter{chunkSize: chunkSize, overlap: overlap}
}

func (s *LegalSplitter) Split(text string) []string {
	var chunks []string
	for _, article := range s.splitByArticles(text) {
		if runeLen(article) <= s.chunkSize {
			chunks = append(chunks, strings.TrimSpace(article))
		} else {
			chunks = append(chunks, s.splitByClauses(article)...)
		}
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return s.mergeSmallChunks(out)
}

// splitByArticles cuts on article headers, prefixing each article with
// the chapter header in effect at its position. Text without article
// markers comes back whole.
func (s *LegalSplitter) splitByArticles(text string) []string {
	matches := articleRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var splits []string
	chapter := ""
	if ch := chapterRe.FindString(text[:matches[0][0]]); ch != "" {
		chapter = strings.TrimSpace(ch) + "\n\n"
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		article := strings.TrimSpace(text[m[0]:end])
		if chapter != "" {
			article = chapter + article
		}
		if ch := chapterRe.FindString(text[m[0]:end]); ch != "" {
			chapter = strings.TrimSpace(ch) + "\n\n"
		}
		splits = append(splits, article)
	}
	return splits
}

// splitByClauses cuts an oversized article on its clause markers, keeping
// the article header line on every piece.
func (s *LegalSplitter) splitByClauses(article string) []string {
	lines := strings.Split(article, "\n")
	header := ""
	start := 0
	for i, line := range lines {
		if loc := articleRe.FindStringIndex(strings.TrimSpace(line)); loc != nil && loc[0] == 0 {
			header = strings.TrimSpace(line) + "\n"
			start = i + 1
			break
		}
	}

	remaining := strings.Join(lines[start:], "\n")
	matches := clauseRe.FindAllStringIndex(remaining, -1)
	if len(matches) == 0 {
		return s.packSentences(article)
	}

	var chunks []string
	for i, m := range matches {
		end := len(remaining)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		chunk := strings.TrimSpace(remaining[m[0]:end])
		if header != "" {
			chunk = header + chunk
		}
		if runeLen(chunk) <= s.chunkSize {
			chunks = append(chunks, chunk)
		} else {
			chunks = append(chunks, s.packSentences(chunk)...)
		}
	}
	return chunks
}

// packSentences accumulates sentences up to the size budget. A single
// sentence longer than the budget is kept whole rather than corrupted.
func (s *LegalSplitter) packSentences(text string) []string {
	sentences := splitSentences(text)

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		if runeLen(current)+runeLen(sentence)+1 <= s.chunkSize {
			current += " " + sentence
		} else {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// mergeSmallChunks folds fragments under minChunkRunes into a neighbor so
// no degenerate tiny chunk survives on its own.
func (s *LegalSplitter) mergeSmallChunks(chunks []string) []string {
	if len(chunks) == 0 {
		return chunks
	}

	var merged []string
	buffer := ""
	for _, chunk := range chunks {
		if runeLen(chunk) < minChunkRunes {
			if buffer != "" {
				buffer += "\n\n" + chunk
			} else {
				buffer = chunk
			}
			continue
		}
		if buffer != "" {
			merged = append(merged, buffer)
			buffer = ""
		}
		merged = append(merged, chunk)
	}
	if buffer != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + buffer
		} else {
			merged = append(merged, buffer)
		}
	}
	return merged
}

// splitSentences cuts after terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, m := range sentenceRe.FindAllStringIndex(text, -1) {
		// Cut after the punctuation rune, before the whitespace.
		_, size := utf8.DecodeRuneInString(text[m[0]:])
		cut := m[0] + size
		sentence := strings.TrimSpace(text[last:cut])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = m[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
