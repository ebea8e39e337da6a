// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/query"
	"github.com/MKhiriev/go-doc-vault/internal/search"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/models"
)

// SearchDocuments runs a full-text query against the index.
func (v *Vault) SearchDocuments(ctx context.Context, opts models.SearchOptions) ([]models.SearchResult, error) {
	_, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if v.index == nil {
		return nil, fmt.Errorf("%w: search is disabled", ErrConfiguration)
	}
	return v.index.Search(opts), nil
}

// GetSuggestions returns indexed words starting with prefix, most frequent
// first.
func (v *Vault) GetSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	_, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if v.index == nil {
		return nil, fmt.Errorf("%w: search is disabled", ErrConfiguration)
	}
	return v.index.Suggestions(prefix, limit), nil
}

// RebuildIndex drops the index and reloads every stored document. It returns
// the number of indexed documents.
func (v *Vault) RebuildIndex(ctx context.Context) (int, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if v.index == nil {
		return 0, fmt.Errorf("%w: search is disabled", ErrConfiguration)
	}
	return rebuild(ctx, v.storage, v.index)
}

// rebuild loads every document type by type before touching the index, so a
// storage failure leaves the previous index in place.
func rebuild(ctx context.Context, s store.DocumentStorage, index *search.Index) (int, error) {
	types, err := s.GetDocumentTypes(ctx)
	if err != nil {
		return 0, err
	}

	var docs []*models.Document
	for _, docType := range types {
		batch, err := s.GetDocumentsByType(ctx, docType, 0, 0)
		if err != nil {
			return 0, fmt.Errorf("load %q documents: %w", docType, err)
		}
		docs = append(docs, batch...)
	}

	index.Clear()
	for _, doc := range docs {
		index.IndexDocument(doc)
	}

	logger.FromContext(ctx).Info().
		Str("func", "rebuild").
		Int("types", len(types)).
		Int("documents", len(docs)).
		Msg("search index rebuilt")
	return len(docs), nil
}

// Query starts a structured query over the stored documents. The builder
// runs against the vault's storage and must not outlive the vault.
func (v *Vault) Query(ctx context.Context) (*query.Builder, error) {
	_, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return query.New(v.storage), nil
}

// GetStats merges storage statistics with the sync state and index size.
func (v *Vault) GetStats(ctx context.Context) (models.VaultStats, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return models.VaultStats{}, err
	}
	defer release()

	st, err := v.storage.GetStats(ctx)
	if err != nil {
		return models.VaultStats{}, err
	}
	stats := models.VaultStats{Storage: st}
	if v.engine != nil {
		sync := v.engine.Stats()
		stats.Sync = &sync
	}
	if v.index != nil {
		stats.Indexed = v.index.Len()
	}
	return stats, nil
}
