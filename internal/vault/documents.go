// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/internal/validators"
	"github.com/MKhiriev/go-doc-vault/models"
)

// DocumentUpdate describes a partial update. Nil fields keep the current
// value.
type DocumentUpdate struct {
	Data     *models.Value
	Metadata models.MetadataInput
}

// CreateDocument stores a new document of docType and returns it with id,
// timestamps, version 1 and content hash assigned.
func (v *Vault) CreateDocument(ctx context.Context, docType string, data models.Value, meta models.MetadataInput) (*models.Document, error) {
	doc, err := v.createDocument(ctx, docType, data, meta)
	if err != nil {
		return nil, err
	}
	v.emit(models.Event{Name: models.EventDocumentCreated, DocumentID: doc.ID, Document: doc.Clone()})
	return doc, nil
}

func (v *Vault) createDocument(ctx context.Context, docType string, data models.Value, meta models.MetadataInput) (*models.Document, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	hash, err := v.contentHash(data)
	if err != nil {
		return nil, err
	}

	now := models.Millis(v.now())
	doc := &models.Document{
		ID:   v.ids.Generate(),
		Type: docType,
		Data: data,
		Metadata: models.Metadata{
			Tags:           models.NormalizeTags(meta.Tags),
			SearchableText: meta.SearchableText,
			ContentHash:    hash,
			SyncStatus:     models.SyncStatusLocal,
		},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := v.validator.Validate(ctx, doc, validators.FieldType, validators.FieldTags); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := v.storage.StoreDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if v.index != nil {
		v.index.IndexDocument(doc)
	}
	if err := v.queue(ctx, models.ChangeCreate, doc); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug().Str("func", "Vault.CreateDocument").Str("id", doc.ID).Msg("document created")
	return doc, nil
}

// GetDocument returns nil without error for an absent id. Corrupted and
// undecryptable records are reported as errors.
func (v *Vault) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := v.storage.GetDocument(ctx, id)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, nil
	}
	return doc, err
}

// GetDocumentsByType lists documents of docType, most recently updated first.
func (v *Vault) GetDocumentsByType(ctx context.Context, docType string, limit, offset int) ([]*models.Document, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return v.storage.GetDocumentsByType(ctx, docType, limit, offset)
}

// UpdateDocument applies upd to the document id, bumps its version and
// refreshes UpdatedAt. It returns nil without error for an absent id.
func (v *Vault) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (*models.Document, error) {
	prev, doc, err := v.updateDocument(ctx, id, upd)
	if err != nil || doc == nil {
		return nil, err
	}
	v.emit(models.Event{Name: models.EventDocumentUpdated, DocumentID: id, Document: doc.Clone(), Previous: prev})
	return doc, nil
}

func (v *Vault) updateDocument(ctx context.Context, id string, upd DocumentUpdate) (prev, doc *models.Document, err error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	prev, err = v.storage.GetDocument(ctx, id)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	doc = prev.Clone()
	if upd.Data != nil {
		doc.Data = *upd.Data
	}
	if upd.Metadata.Tags != nil {
		doc.Metadata.Tags = models.NormalizeTags(upd.Metadata.Tags)
		if err := v.validator.Validate(ctx, doc, validators.FieldTags); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	if upd.Metadata.SearchableText != nil {
		text := *upd.Metadata.SearchableText
		doc.Metadata.SearchableText = &text
	}
	if doc.Metadata.ContentHash, err = v.contentHash(doc.Data); err != nil {
		return nil, nil, err
	}
	doc.Version = prev.Version + 1
	doc.UpdatedAt = models.Millis(v.now())
	if doc.UpdatedAt.Before(prev.UpdatedAt) {
		doc.UpdatedAt = prev.UpdatedAt
	}
	doc.Metadata.SyncStatus = models.SyncStatusLocal

	if err := v.storage.StoreDocument(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("store document: %w", err)
	}
	if v.index != nil {
		v.index.IndexDocument(doc)
	}
	if v.engine != nil && v.engine.IsStructured(doc.Type) {
		v.engine.RecordBase(id, prev.Data)
	}
	if err := v.queue(ctx, models.ChangeUpdate, doc); err != nil {
		return nil, nil, err
	}

	logger.FromContext(ctx).Debug().
		Str("func", "Vault.UpdateDocument").
		Str("id", id).
		Int64("version", doc.Version).
		Msg("document updated")
	return prev, doc, nil
}

// DeleteDocument removes id from storage and the index and queues a delete.
// It reports whether the document existed.
func (v *Vault) DeleteDocument(ctx context.Context, id string) (bool, error) {
	existed, err := v.deleteDocument(ctx, id)
	if err != nil || !existed {
		return false, err
	}
	v.emit(models.Event{Name: models.EventDocumentDeleted, DocumentID: id})
	return true, nil
}

func (v *Vault) deleteDocument(ctx context.Context, id string) (bool, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	existed, err := v.storage.DeleteDocument(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	if !existed {
		return false, nil
	}
	if v.index != nil {
		v.index.RemoveDocument(id)
	}
	if err := v.queue(ctx, models.ChangeDelete, &models.Document{ID: id}); err != nil {
		return false, err
	}
	return true, nil
}

// queue records a change with the sync engine, if there is one. Deletes carry
// no document and no hash.
func (v *Vault) queue(ctx context.Context, typ models.ChangeType, doc *models.Document) error {
	if v.engine == nil {
		return nil
	}
	change := models.SyncChange{ID: doc.ID, Type: typ}
	if typ != models.ChangeDelete {
		change.Document = doc
		change.Hash = doc.Metadata.ContentHash
	}
	if _, err := v.engine.QueueChange(ctx, change); err != nil {
		return fmt.Errorf("queue %s change: %w", typ, err)
	}
	return nil
}

func (v *Vault) contentHash(data models.Value) (string, error) {
	canonical, err := models.Canonical(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return v.keyChain.HashHex(canonical), nil
}
