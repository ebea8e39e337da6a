// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package search is the volatile full-text index over decrypted documents.
//
// Nothing here is ever written to disk. The index is rebuilt from storage by
// the vault whenever the process starts, so it is never the source of truth.
package search

import (
	"cmp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

type entry struct {
	doc    *models.Document
	text   string
	tokens map[string]int
}

// Index is an in-memory forward and inverted token index. It is safe for
// concurrent use.
type Index struct {
	mu sync.RWMutex

	entries  map[string]*entry
	inverted map[string]map[string]struct{}

	// vocabulary is the sorted token list used for prefix lookups; it is
	// rebuilt lazily after the inverted index changes.
	vocabulary []string
	dirty      bool

	logger *logger.Logger
	now    func() time.Time
}

// NewIndex returns an empty index.
func NewIndex(log *logger.Logger) *Index {
	if log == nil {
		log = logger.Nop()
	}
	return &Index{
		entries:  make(map[string]*entry),
		inverted: make(map[string]map[string]struct{}),
		logger:   log,
		now:      time.Now,
	}
}

// SearchableText builds the text a document is indexed under: type, tags,
// searchableText and the flattened data, in that order.
func SearchableText(doc *models.Document) string {
	parts := make([]string, 0, 4)
	parts = append(parts, doc.Type)
	if len(doc.Metadata.Tags) > 0 {
		parts = append(parts, strings.Join(doc.Metadata.Tags, " "))
	}
	if doc.Metadata.SearchableText != nil && *doc.Metadata.SearchableText != "" {
		parts = append(parts, *doc.Metadata.SearchableText)
	}
	if flat := doc.Data.Flatten(); flat != "" {
		parts = append(parts, flat)
	}
	return strings.Join(parts, " ")
}

// IndexDocument adds doc, replacing any earlier entry with the same id.
func (x *Index) IndexDocument(doc *models.Document) {
	if doc == nil {
		return
	}
	doc = doc.Clone()
	doc.Metadata.Tags = models.NormalizeTags(doc.Metadata.Tags)

	text := SearchableText(doc)
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(doc.ID)
	x.entries[doc.ID] = &entry{doc: doc, text: text, tokens: counts}
	for tok := range counts {
		ids, ok := x.inverted[tok]
		if !ok {
			ids = make(map[string]struct{})
			x.inverted[tok] = ids
			x.dirty = true
		}
		ids[doc.ID] = struct{}{}
	}

	x.logger.Debug().
		Str("func", "Index.IndexDocument").
		Str("id", doc.ID).
		Int("tokens", len(counts)).
		Msg("document indexed")
}

// RemoveDocument drops id from the index. Unknown ids are ignored.
func (x *Index) RemoveDocument(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *Index) removeLocked(id string) {
	e, ok := x.entries[id]
	if !ok {
		return
	}
	for tok := range e.tokens {
		ids := x.inverted[tok]
		delete(ids, id)
		if len(ids) == 0 {
			delete(x.inverted, tok)
			x.dirty = true
		}
	}
	delete(x.entries, id)
}

// Clear empties the index.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = make(map[string]*entry)
	x.inverted = make(map[string]map[string]struct{})
	x.vocabulary = nil
	x.dirty = false
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Search runs opts against the index. Every query token must be a prefix of
// some token of a document for it to match.
func (x *Index) Search(opts models.SearchOptions) []models.SearchResult {
	queryTokens := Tokenize(opts.Query)

	// The vocabulary may need a rebuild, so queries take the write lock.
	x.mu.Lock()
	defer x.mu.Unlock()
	x.refreshVocabularyLocked()

	candidates := x.candidatesLocked(queryTokens)
	now := x.now()

	results := make([]models.SearchResult, 0, len(candidates))
	for _, id := range candidates {
		e := x.entries[id]
		if !matchesFilters(e.doc, opts) {
			continue
		}
		results = append(results, models.SearchResult{
			Document:   e.doc.Clone(),
			Score:      score(e, queryTokens, now),
			Highlights: highlights(e.text, queryTokens, maxHighlights),
		})
	}

	sortResults(results, opts.SortBy, opts.SortOrder)
	return paginate(results, opts.Limit, opts.Offset)
}

// Suggestions returns up to limit indexed tokens starting with prefix, the
// ones occurring in most documents first.
func (x *Index) Suggestions(prefix string, limit int) []string {
	folded := fold(strings.TrimSpace(prefix))
	if folded == "" {
		return []string{}
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.refreshVocabularyLocked()

	matches := x.prefixTokensLocked(folded)
	slices.SortStableFunc(matches, func(a, b string) int {
		return cmp.Compare(len(x.inverted[b]), len(x.inverted[a]))
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (x *Index) refreshVocabularyLocked() {
	if !x.dirty && x.vocabulary != nil {
		return
	}
	vocab := make([]string, 0, len(x.inverted))
	for tok := range x.inverted {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	x.vocabulary = vocab
	x.dirty = false
}

// prefixTokensLocked returns the sorted vocabulary tokens starting with prefix.
func (x *Index) prefixTokensLocked(prefix string) []string {
	i := sort.SearchStrings(x.vocabulary, prefix)
	var out []string
	for ; i < len(x.vocabulary) && strings.HasPrefix(x.vocabulary[i], prefix); i++ {
		out = append(out, x.vocabulary[i])
	}
	return out
}

// candidatesLocked returns the ids matching every query token, sorted. An
// empty query matches everything.
func (x *Index) candidatesLocked(queryTokens []string) []string {
	if len(queryTokens) == 0 {
		ids := make([]string, 0, len(x.entries))
		for id := range x.entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}

	var matched map[string]struct{}
	for _, qt := range queryTokens {
		hits := make(map[string]struct{})
		for _, tok := range x.prefixTokensLocked(qt) {
			for id := range x.inverted[tok] {
				if matched == nil {
					hits[id] = struct{}{}
					continue
				}
				if _, ok := matched[id]; ok {
					hits[id] = struct{}{}
				}
			}
		}
		matched = hits
		if len(matched) == 0 {
			return nil
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func matchesFilters(doc *models.Document, opts models.SearchOptions) bool {
	if len(opts.Types) > 0 && !slices.Contains(opts.Types, doc.Type) {
		return false
	}
	for _, tag := range opts.Tags {
		if !doc.HasTag(tag) {
			return false
		}
	}
	return true
}

func paginate(results []models.SearchResult, limit, offset int) []models.SearchResult {
	if offset > 0 {
		if offset >= len(results) {
			return []models.SearchResult{}
		}
		results = results[offset:]
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
