package domain

// Document is one raw corpus unit as yielded by the document source.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	LawID string `json:"law_id"`
}

// ParentChunk is a structurally aligned slice of a document, sized for
// generation context. Parent chunks are created once at ingestion and
// retained until the next ingestion run clears the store.
type ParentChunk struct {
	ParentID   string `json:"parent_id"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	LawID      string `json:"law_id"`
	Text       string `json:"text"`
}

// ChildChunk is the indexed retrieval unit. Many children reference one
// parent via ParentID; the parent text rides along in metadata so retrieval
// can reconstruct it without a store round trip.
type ChildChunk struct {
	Text       string `json:"text"`
	ParentID   string `json:"parent_id"`
	ParentText string `json:"parent_text"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	LawID      string `json:"law_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// ScoredChunk is a query-scoped child chunk with a normalized relevance
// score in [0,1]. Never persisted.
type ScoredChunk struct {
	ChildChunk
	Score float64 `json:"score"`
}

// SourceDocument is one deduplicated, parent-level entry of a retrieval
// result, carrying the legal citation metadata shown to the user.
type SourceDocument struct {
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	ArticleRef string  `json:"article_ref,omitempty"`
	LawID      string  `json:"law_id,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	ParentID   string  `json:"parent_id,omitempty"`
	Score      float64 `json:"relevance_score"`
}

type Answer struct {
	Text    string           `json:"text"`
	Sources []SourceDocument `json:"sources"`
}

// SparseVector is a weighted-term lexical representation in the index's
// sparse vector space. Indices are hashed terms, values their weights.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type StreamEventType string

const (
	EventSources StreamEventType = "sources"
	EventToken   StreamEventType = "token"
	EventDone    StreamEventType = "done"
)

// StreamEvent is one unit of a streamed answer. The sources event is
// emitted exactly once, before any token event.
type StreamEvent struct {
	Type    StreamEventType  `json:"type"`
	Token   string           `json:"data,omitempty"`
	Sources []SourceDocument `json:"sources,omitempty"`
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one prior conversational turn passed in by the caller.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
