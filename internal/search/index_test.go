package search

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-doc-vault/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestIndex() *Index {
	x := NewIndex(nil)
	x.now = func() time.Time { return testNow }
	return x
}

func doc(id, docType string, tags []string, data map[string]any, updated time.Time, version int64) *models.Document {
	return &models.Document{
		ID:        id,
		Type:      docType,
		Data:      models.MustFromAny(data),
		Metadata:  models.Metadata{Tags: tags},
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
		Version:   version,
	}
}

func resultIDs(results []models.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Document.ID)
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "case folding", in: "Hello WORLD", want: []string{"hello", "world"}},
		{name: "punctuation splits", in: "foo,bar-baz_qux", want: []string{"foo", "bar", "baz", "qux"}},
		{name: "digits kept", in: "room 101b", want: []string{"room", "101b"}},
		{name: "compatibility forms", in: "ﬁle Ｆｕｌｌ", want: []string{"file", "full"}},
		{name: "german sharp s folds", in: "Straße", want: []string{"strasse"}},
		{name: "empty", in: "  ...  ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchableText(t *testing.T) {
	text := "note body"
	d := doc("1", "message", []string{"work"}, map[string]any{"subject": "hi"}, testNow, 1)
	d.Metadata.SearchableText = &text

	assert.Equal(t, "message work note body subject hi", SearchableText(d))
}

func TestIndex_PrefixMatchAllTokens(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{"text": "hello world"}, testNow, 1))
	x.IndexDocument(doc("b", "message", nil, map[string]any{"text": "hello there"}, testNow, 1))

	assert.Equal(t, []string{"a", "b"}, sortedIDs(x.Search(models.SearchOptions{Query: "hel"})))
	assert.Equal(t, []string{"a"}, resultIDs(x.Search(models.SearchOptions{Query: "HELLO wor"})))
	assert.Empty(t, x.Search(models.SearchOptions{Query: "hello nobody"}))
	assert.Empty(t, x.Search(models.SearchOptions{Query: "ello"}))
}

func TestIndex_EmptyQueryMatchesEverything(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{"text": "one"}, testNow, 1))
	x.IndexDocument(doc("b", "contact", nil, map[string]any{"text": "two"}, testNow, 1))

	got := x.Search(models.SearchOptions{SortBy: models.SortByType})
	assert.Equal(t, []string{"b", "a"}, resultIDs(got))
	for _, r := range got {
		assert.Empty(t, r.Highlights)
	}
}

func TestIndex_Filters(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", []string{"work", "urgent"}, map[string]any{"text": "report"}, testNow, 1))
	x.IndexDocument(doc("b", "message", []string{"work"}, map[string]any{"text": "report"}, testNow, 1))
	x.IndexDocument(doc("c", "note", []string{"work", "urgent"}, map[string]any{"text": "report"}, testNow, 1))

	got := x.Search(models.SearchOptions{Query: "report", Types: []string{"message"}, Tags: []string{"urgent", "work"}})
	assert.Equal(t, []string{"a"}, resultIDs(got))

	got = x.Search(models.SearchOptions{Query: "report", Types: []string{"message", "note"}})
	assert.Len(t, got, 3)
}

func TestIndex_Scoring(t *testing.T) {
	x := newTestIndex()
	// Same content; only recency, version and type differ.
	x.IndexDocument(doc("old", "note", nil, map[string]any{"t": "budget"}, testNow.Add(-60*24*time.Hour), 1))
	x.IndexDocument(doc("fresh", "note", nil, map[string]any{"t": "budget"}, testNow, 1))
	x.IndexDocument(doc("edited", "note", nil, map[string]any{"t": "budget"}, testNow.Add(-60*24*time.Hour), 6))
	x.IndexDocument(doc("typed", "budget", nil, map[string]any{"t": "plan"}, testNow.Add(-60*24*time.Hour), 1))
	x.IndexDocument(doc("repeat", "note", nil, map[string]any{"t": "budget budget budget"}, testNow.Add(-60*24*time.Hour), 1))

	got := x.Search(models.SearchOptions{Query: "budget"})
	require.Len(t, got, 5)

	scores := make(map[string]float64)
	for _, r := range got {
		scores[r.Document.ID] = r.Score
	}

	assert.InDelta(t, 1.0, scores["old"], 1e-9)
	assert.InDelta(t, 2.0, scores["fresh"], 1e-9)
	assert.InDelta(t, 1.5, scores["edited"], 1e-9)
	assert.InDelta(t, 3.0, scores["typed"], 1e-9)
	assert.InDelta(t, 3.0, scores["repeat"], 1e-9)

	assert.Equal(t, []string{"repeat", "typed", "fresh", "edited", "old"}, resultIDs(got))
}

func TestIndex_SortAndPaginate(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{"t": "x"}, testNow.Add(-3*time.Hour), 1))
	x.IndexDocument(doc("b", "message", nil, map[string]any{"t": "x"}, testNow.Add(-1*time.Hour), 1))
	x.IndexDocument(doc("c", "message", nil, map[string]any{"t": "x"}, testNow.Add(-2*time.Hour), 1))

	asc := x.Search(models.SearchOptions{Query: "x", SortBy: models.SortByUpdatedAt})
	assert.Equal(t, []string{"a", "c", "b"}, resultIDs(asc))

	desc := x.Search(models.SearchOptions{Query: "x", SortBy: models.SortByCreatedAt, SortOrder: models.SortDesc})
	assert.Equal(t, []string{"b", "c", "a"}, resultIDs(desc))

	page := x.Search(models.SearchOptions{Query: "x", SortBy: models.SortByUpdatedAt, Limit: 1, Offset: 1})
	assert.Equal(t, []string{"c"}, resultIDs(page))

	past := x.Search(models.SearchOptions{Query: "x", Offset: 10})
	assert.Empty(t, past)
}

func TestIndex_Highlights(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{
		"text": "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu gamma nu gamma xi gamma",
	}, testNow, 1))

	got := x.Search(models.SearchOptions{Query: "gam"})
	require.Len(t, got, 1)
	require.Len(t, got[0].Highlights, maxHighlights)
	assert.Equal(t, "message text alpha beta <mark>gamma</mark> delta epsilon zeta eta", got[0].Highlights[0])
	for _, h := range got[0].Highlights {
		assert.Contains(t, h, "<mark>gamma</mark>")
	}
}

func TestIndex_ReindexAndRemove(t *testing.T) {
	x := newTestIndex()
	d := doc("a", "message", nil, map[string]any{"text": "apple"}, testNow, 1)
	x.IndexDocument(d)

	d2 := d.Clone()
	d2.Data = models.MustFromAny(map[string]any{"text": "banana"})
	x.IndexDocument(d2)

	assert.Equal(t, 1, x.Len())
	assert.Empty(t, x.Search(models.SearchOptions{Query: "apple"}))
	assert.Len(t, x.Search(models.SearchOptions{Query: "banana"}), 1)

	x.RemoveDocument("a")
	x.RemoveDocument("unknown")
	assert.Zero(t, x.Len())
	assert.Empty(t, x.Search(models.SearchOptions{Query: "banana"}))
	assert.Empty(t, x.Suggestions("ban", 5))
}

func TestIndex_ResultsAreCopies(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", []string{"t1"}, map[string]any{"text": "apple"}, testNow, 1))

	got := x.Search(models.SearchOptions{Query: "apple"})
	require.Len(t, got, 1)
	got[0].Document.Metadata.Tags[0] = "mutated"

	again := x.Search(models.SearchOptions{Query: "apple", Tags: []string{"t1"}})
	assert.Len(t, again, 1)
}

func TestIndex_Suggestions(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{"text": "project progress"}, testNow, 1))
	x.IndexDocument(doc("b", "message", nil, map[string]any{"text": "project promise"}, testNow, 1))
	x.IndexDocument(doc("c", "message", nil, map[string]any{"text": "project"}, testNow, 1))

	assert.Equal(t, []string{"project", "progress", "promise"}, x.Suggestions("PRO", 10))
	assert.Equal(t, []string{"project"}, x.Suggestions("pro", 1))
	assert.Empty(t, x.Suggestions("", 10))
	assert.Empty(t, x.Suggestions("zzz", 10))
}

func TestIndex_Clear(t *testing.T) {
	x := newTestIndex()
	x.IndexDocument(doc("a", "message", nil, map[string]any{"text": "apple"}, testNow, 1))
	x.Clear()

	assert.Zero(t, x.Len())
	assert.Empty(t, x.Search(models.SearchOptions{}))
	assert.Empty(t, x.Suggestions("a", 10))
}

func TestScore_TypeBoostMatchesTypeTokens(t *testing.T) {
	old := testNow.Add(-365 * 24 * time.Hour)
	entryOf := func(docType string) *entry {
		return &entry{doc: doc("x", docType, nil, nil, old, 1), tokens: map[string]int{"hello": 1}}
	}

	tests := []struct {
		name    string
		docType string
		query   string
		want    float64
	}{
		{name: "whole type", docType: "note", query: "hello note", want: 1 + typeMatchBoost},
		{name: "one part of a hyphenated type", docType: "chat-message", query: "hello message", want: 1 + typeMatchBoost},
		{name: "case folded", docType: "Chat-Message", query: "hello CHAT", want: 1 + typeMatchBoost},
		{name: "boost applies once", docType: "chat-message", query: "hello chat message", want: 1 + typeMatchBoost},
		{name: "no type token", docType: "chat-message", query: "hello", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, score(entryOf(tt.docType), Tokenize(tt.query), testNow), 1e-9)
		})
	}
}

func sortedIDs(results []models.SearchResult) []string {
	ids := resultIDs(results)
	sort.Strings(ids)
	return ids
}
