package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	articleRefRe = regexp.MustCompile(`(?i)Điều\s+\d+[a-zA-Z]?`)
	clauseRefRe  = regexp.MustCompile(`(?m)^\s*(\d+)\.\s`)
)

// ExtractArticleRef pulls the first article reference (and, when the text
// opens with a clause marker, the clause number) out of a legal text
// fragment. Returns "" when no reference is found.
func ExtractArticleRef(text string) string {
	article := articleRefRe.FindString(text)
	if article == "" {
		return ""
	}
	article = strings.Join(strings.Fields(article), " ")

	if clause := clauseRefRe.FindStringSubmatch(text); clause != nil {
		return "Khoản " + clause[1] + ", " + article
	}
	return article
}

// DeriveLawID extracts the law identifier from a corpus document id of the
// form "<law_id>+<article>".
func DeriveLawID(documentID string) string {
	if idx := strings.Index(documentID, "+"); idx >= 0 {
		return documentID[:idx]
	}
	return documentID
}

// FormatLawID renders a raw law id ("luat-hon-nhan_2014") as display text.
func FormatLawID(lawID string) string {
	if lawID == "" {
		return ""
	}
	lawID = strings.ReplaceAll(lawID, "-", " ")
	lawID = strings.ReplaceAll(lawID, "_", " ")
	return strings.Title(lawID) //nolint:staticcheck // corpus ids are ASCII slugs
}

// TitleOrFallback returns a usable display title: the stored title, the
// first short line of content, or a generic label.
func TitleOrFallback(title, content string) string {
	title = strings.TrimSpace(title)
	if title != "" && title != "Unknown" {
		return title
	}
	firstLine := content
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if firstLine != "" && len([]rune(firstLine)) < 200 {
		return firstLine
	}
	return "Văn bản pháp luật"
}

// SmartTruncate cuts text at the last word boundary before max runes,
// appending an ellipsis when anything was dropped.
func SmartTruncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}

	cut := max
	for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
