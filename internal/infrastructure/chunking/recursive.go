package chunking

import "strings"

var defaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// RecursiveSplitter is the generic fallback: it splits on a priority list
// of separators, recursing to finer separators only for pieces that still
// exceed the budget, and repeats chunk-overlap characters between
// consecutive chunks for context continuity.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &RecursiveSplitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

func (s *RecursiveSplitter) Split(text string) []string {
	chunks := s.split(text, s.separators)

	out := chunks[:0]
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if runeLen(text) <= s.chunkSize {
		return []string{text}
	}

	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	splits := splitWithSeparator(text, separator)

	var chunks []string
	var fitting []string
	for _, piece := range splits {
		if runeLen(piece) <= s.chunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			chunks = append(chunks, s.mergeSplits(fitting)...)
			fitting = nil
		}
		if len(finer) == 0 {
			// Irreducible: kept whole rather than corrupted.
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}
	if len(fitting) > 0 {
		chunks = append(chunks, s.mergeSplits(fitting)...)
	}
	return chunks
}

// mergeSplits packs already-fitting pieces (separators still attached)
// back together up to the size budget, seeding each new chunk with the
// overlap tail of the previous one. The retained tail shrinks until the
// incoming piece fits the budget again, so merged chunks never exceed
// chunkSize; when even a single retained piece would not leave room,
// the tail is dropped entirely.
func (s *RecursiveSplitter) mergeSplits(splits []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	emit := func() {
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" && (len(chunks) == 0 || chunk != chunks[len(chunks)-1]) {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range splits {
		pieceLen := runeLen(piece)
		if currentLen > 0 && currentLen+pieceLen > s.chunkSize {
			emit()
			for len(current) > 0 && (currentLen > s.overlap || currentLen+pieceLen > s.chunkSize) {
				currentLen -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += pieceLen
	}
	if len(current) > 0 {
		emit()
	}
	return chunks
}

// splitWithSeparator keeps the separator attached to the preceding piece
// so rejoining can't lose characters.
func splitWithSeparator(text, separator string) []string {
	if separator == "" {
		return strings.Split(text, "")
	}
	parts := strings.SplitAfter(text, separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
