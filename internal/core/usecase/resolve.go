package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
)

// ParentMatchMode selects how scored child chunks are mapped back to
// parent documents. Explicit linkage via parent_id metadata is canonical;
// fuzzy prefix matching is the fallback for payloads indexed without it.
// A single query never mixes the two.
type ParentMatchMode string

const (
	MatchExplicit ParentMatchMode = "explicit"
	MatchFuzzy    ParentMatchMode = "fuzzy"
)

const (
	fuzzyPrefixRunes    = 100
	fuzzyWindowRunes    = 2000
	fuzzyMinOverlap     = 0.05
	fuzzyRankDecayStep  = 0.1
	fuzzyRankFloorScore = 0.5
)

// ParentResolver deduplicates scored child chunks into parent-level
// documents, propagating the best child score to each parent.
type ParentResolver struct {
	store ports.ParentStore
	mode  ParentMatchMode
	topN  int
}

func NewParentResolver(store ports.ParentStore, mode ParentMatchMode, topN int) *ParentResolver {
	if mode != MatchFuzzy {
		mode = MatchExplicit
	}
	if topN <= 0 {
		topN = 5
	}
	return &ParentResolver{store: store, mode: mode, topN: topN}
}

// Resolve groups candidates by parent, keeps the maximum score per
// parent, re-sorts descending and truncates to top-N. Candidates without
// a parent link are kept as singleton documents.
func (r *ParentResolver) Resolve(ctx context.Context, scored []domain.ScoredChunk) ([]domain.SourceDocument, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	var docs []domain.SourceDocument
	if r.mode == MatchFuzzy {
		docs = r.resolveFuzzy(scored)
	} else {
		docs = r.resolveExplicit(ctx, scored)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	if len(docs) > r.topN {
		docs = docs[:r.topN]
	}
	return docs, nil
}

func (r *ParentResolver) resolveExplicit(ctx context.Context, scored []domain.ScoredChunk) []domain.SourceDocument {
	byParent := make(map[string]int, len(scored))
	docs := make([]domain.SourceDocument, 0, len(scored))

	for i, chunk := range scored {
		if chunk.ParentID == "" {
			// No linkage: the chunk stands for itself.
			docs = append(docs, r.buildDocument(chunk, chunk.Text, fmt.Sprintf("chunk-%d", i)))
			continue
		}

		if idx, ok := byParent[chunk.ParentID]; ok {
			if chunk.Score > docs[idx].Score {
				docs[idx].Score = chunk.Score
			}
			continue
		}

		content := chunk.ParentText
		if content == "" {
			content = r.lookupParentText(ctx, chunk)
		}
		byParent[chunk.ParentID] = len(docs)
		docs = append(docs, r.buildDocument(chunk, content, chunk.ParentID))
	}

	return docs
}

// lookupParentText reconstructs the parent text from the parent store
// when it was not carried in the chunk metadata. The child's own text is
// the last resort; a degraded document beats a dropped one.
func (r *ParentResolver) lookupParentText(ctx context.Context, chunk domain.ScoredChunk) string {
	if r.store == nil {
		return chunk.Text
	}
	parent, err := r.store.Get(ctx, chunk.ParentID)
	if err != nil || parent == nil {
		slog.Warn("parent_lookup_failed", "parent_id", chunk.ParentID, "error", err)
		return chunk.Text
	}
	return parent.Text
}

// resolveFuzzy is the legacy policy for payloads without parent_id
// metadata: a child belongs to a candidate parent when its text prefix is
// contained in the parent's leading window with sufficient overlap.
// Parents no scored child matched receive a rank-decayed score so they
// are not scoreless.
func (r *ParentResolver) resolveFuzzy(scored []domain.ScoredChunk) []domain.SourceDocument {
	type fuzzyParent struct {
		window  string
		doc     domain.SourceDocument
		matched bool
	}

	var parents []fuzzyParent

	for i, chunk := range scored {
		prefix := runePrefix(chunk.Text, fuzzyPrefixRunes)
		matched := false

		for p := range parents {
			if !containsWithOverlap(parents[p].window, prefix) {
				continue
			}
			if chunk.Score > parents[p].doc.Score {
				parents[p].doc.Score = chunk.Score
			}
			if chunk.Score > 0 {
				parents[p].matched = true
			}
			matched = true
			break
		}
		if matched {
			continue
		}

		content := chunk.ParentText
		if content == "" {
			content = chunk.Text
		}
		parents = append(parents, fuzzyParent{
			window:  runePrefix(content, fuzzyWindowRunes),
			doc:     r.buildDocument(chunk, content, fmt.Sprintf("fuzzy-%d", i)),
			matched: chunk.Score > 0,
		})
	}

	docs := make([]domain.SourceDocument, 0, len(parents))
	for rank, p := range parents {
		if !p.matched {
			decayed := 1.0 - float64(rank)*fuzzyRankDecayStep
			if decayed < fuzzyRankFloorScore {
				decayed = fuzzyRankFloorScore
			}
			p.doc.Score = decayed
		}
		docs = append(docs, p.doc)
	}
	return docs
}

func (r *ParentResolver) buildDocument(chunk domain.ScoredChunk, content, fallbackID string) domain.SourceDocument {
	parentID := chunk.ParentID
	if parentID == "" {
		parentID = fallbackID
	}
	lawID := chunk.LawID
	if lawID == "" {
		lawID = domain.DeriveLawID(chunk.DocumentID)
	}
	return domain.SourceDocument{
		Content:    content,
		Title:      domain.TitleOrFallback(chunk.Title, content),
		ArticleRef: domain.ExtractArticleRef(content),
		LawID:      domain.FormatLawID(lawID),
		DocumentID: chunk.DocumentID,
		ParentID:   parentID,
		Score:      chunk.Score,
	}
}

func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// containsWithOverlap reports whether prefix occurs in window and the
// overlap ratio len(prefix)/len(window) clears the acceptance threshold.
func containsWithOverlap(window, prefix string) bool {
	if window == "" || prefix == "" {
		return false
	}
	if !strings.Contains(window, prefix) {
		return false
	}
	ratio := float64(len([]rune(prefix))) / float64(len([]rune(window)))
	return ratio > fuzzyMinOverlap
}
