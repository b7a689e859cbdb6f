package chunking

import "unicode/utf8"

// Mode selects the splitting strategy.
type Mode string

const (
	// ModeLegal splits along Vietnamese legal structure (chapter /
	// article / clause boundaries), degrading to sentence packing.
	ModeLegal Mode = "legal"
	// ModeGeneric is the recursive character splitter.
	ModeGeneric Mode = "generic"
)

// Splitter turns raw text into an ordered sequence of chunks.
type Splitter interface {
	Split(text string) []string
}

// NewSplitter builds the configured splitter variant. Unknown modes get
// the generic splitter.
func NewSplitter(mode Mode, chunkSize, overlap int) Splitter {
	if mode == ModeLegal {
		return NewLegalSplitter(chunkSize, overlap)
	}
	return NewRecursiveSplitter(chunkSize, overlap)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
