package search

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/MKhiriev/go-doc-vault/models"
)

const (
	maxHighlights          = 3
	defaultSuggestionLimit = 10

	// typeMatchBoost is added once when a query token equals one of the
	// document type's tokens.
	typeMatchBoost = 2.0

	// recencyWindow is how long a freshly updated document keeps a decaying
	// boost of up to recencyBoostMax.
	recencyWindow   = 30 * 24 * time.Hour
	recencyBoostMax = 1.0

	// versionBoostStep is added per update, capped at versionBoostMax.
	versionBoostStep = 0.1
	versionBoostMax  = 1.0

	// excerptContext is the number of words kept on each side of a match.
	excerptContext = 4
	markOpen       = "<mark>"
	markClose      = "</mark>"
)

// score ranks one matching entry.
func score(e *entry, queryTokens []string, now time.Time) float64 {
	var s float64

	for _, qt := range queryTokens {
		for tok, n := range e.tokens {
			if strings.HasPrefix(tok, qt) {
				s += float64(n)
			}
		}
	}

	typeTokens := Tokenize(e.doc.Type)
	for _, qt := range queryTokens {
		if slices.Contains(typeTokens, qt) {
			s += typeMatchBoost
			break
		}
	}

	if age := now.Sub(e.doc.UpdatedAt); age < recencyWindow {
		if age < 0 {
			age = 0
		}
		s += recencyBoostMax * (1 - float64(age)/float64(recencyWindow))
	}

	if e.doc.Version > 1 {
		s += min(float64(e.doc.Version-1)*versionBoostStep, versionBoostMax)
	}

	return s
}

// sortResults orders results in place. Relevance defaults to descending,
// every other key to ascending; ties fall back to the document id.
func sortResults(results []models.SearchResult, by models.SortBy, order models.SortOrder) {
	if by == "" {
		by = models.SortByRelevance
	}
	if order == "" {
		order = models.SortAsc
		if by == models.SortByRelevance {
			order = models.SortDesc
		}
	}

	compare := func(a, b models.SearchResult) int {
		switch by {
		case models.SortByCreatedAt:
			return a.Document.CreatedAt.Compare(b.Document.CreatedAt)
		case models.SortByUpdatedAt:
			return a.Document.UpdatedAt.Compare(b.Document.UpdatedAt)
		case models.SortByType:
			return cmp.Compare(a.Document.Type, b.Document.Type)
		default:
			return cmp.Compare(a.Score, b.Score)
		}
	}

	slices.SortStableFunc(results, func(a, b models.SearchResult) int {
		c := compare(a, b)
		if order == models.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Document.ID, b.Document.ID)
	})
}

// highlights returns up to limit excerpts of text, each centred on a word
// matching one of the query tokens, with the word wrapped in <mark> tags.
func highlights(text string, queryTokens []string, limit int) []string {
	out := []string{}
	if len(queryTokens) == 0 {
		return out
	}

	ws := words(text)
	for i, w := range ws {
		if len(out) == limit {
			break
		}
		if !matchesAny(w.folded, queryTokens) {
			continue
		}

		from := ws[max(0, i-excerptContext)].start
		to := ws[min(len(ws)-1, i+excerptContext)].end

		var sb strings.Builder
		sb.WriteString(text[from:w.start])
		sb.WriteString(markOpen)
		sb.WriteString(text[w.start:w.end])
		sb.WriteString(markClose)
		sb.WriteString(text[w.end:to])
		out = append(out, sb.String())
	}
	return out
}

func matchesAny(folded string, queryTokens []string) bool {
	for _, qt := range queryTokens {
		if strings.HasPrefix(folded, qt) {
			return true
		}
	}
	return false
}
