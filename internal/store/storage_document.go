// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

// documentStorage is the default implementation of [DocumentStorage].
//
// It is the orchestration layer between the vault and the repositories:
// documents are serialised into a [models.RecordBody], encrypted with the
// vault key and checksummed here, so the repositories only ever move
// ciphertext.
type documentStorage struct {
	db       *DB
	records  RecordRepository
	metadata MetadataRepository

	keyChain crypto.KeyChain
	// key is shared with the vault, which owns it and wipes it on close.
	key *crypto.Key

	logger *logger.Logger
	now    func() time.Time
}

// NewDocumentStorage wires a [DocumentStorage] over an open, migrated db.
func NewDocumentStorage(db *DB, keyChain crypto.KeyChain, key *crypto.Key, logger *logger.Logger) DocumentStorage {
	logger.Debug().Msg("creating document storage")

	return &documentStorage{
		db:       db,
		records:  NewRecordRepository(db, logger),
		metadata: NewMetadataRepository(db),
		keyChain: keyChain,
		key:      key,
		logger:   logger,
		now:      time.Now,
	}
}

// StoreDocument implements [DocumentStorage].
func (s *documentStorage) StoreDocument(ctx context.Context, doc *models.Document) error {
	rec, err := s.seal(doc)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentStorage.StoreDocument").
			Str("id", doc.ID).
			Msg("failed to encrypt document")
		return err
	}

	return s.records.Upsert(ctx, rec)
}

// GetDocument implements [DocumentStorage].
func (s *documentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.open(rec)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "documentStorage.GetDocument").
			Str("id", id).
			Msg("stored record failed verification")
		return nil, err
	}
	return doc, nil
}

// GetDocumentsByType implements [DocumentStorage].
func (s *documentStorage) GetDocumentsByType(ctx context.Context, docType string, limit, offset int) ([]*models.Document, error) {
	recs, err := s.records.ListByType(ctx, docType, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.openAll(ctx, recs)
}

// GetDocumentTypes implements [DocumentStorage].
func (s *documentStorage) GetDocumentTypes(ctx context.Context) ([]string, error) {
	return s.records.Types(ctx)
}

// DeleteDocument implements [DocumentStorage].
func (s *documentStorage) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return s.records.Delete(ctx, id)
}

// UpdateSyncStatus implements [DocumentStorage].
func (s *documentStorage) UpdateSyncStatus(ctx context.Context, ids []string, status models.SyncStatus, at *time.Time) error {
	var lastSyncAt *int64
	if at != nil {
		ms := at.UnixMilli()
		lastSyncAt = &ms
	}
	_, err := s.records.UpdateSyncStatus(ctx, ids, status, lastSyncAt)
	return err
}

// SelectBuilder implements [DocumentStorage].
func (s *documentStorage) SelectBuilder() sq.SelectBuilder {
	return selectRecords()
}

// QueryDocuments implements [DocumentStorage].
func (s *documentStorage) QueryDocuments(ctx context.Context, q sq.SelectBuilder) ([]*models.Document, error) {
	recs, err := s.records.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.openAll(ctx, recs)
}

// GetStats implements [DocumentStorage].
func (s *documentStorage) GetStats(ctx context.Context) (models.StorageStats, error) {
	return s.records.Stats(ctx)
}

// ExportDatabase implements [DocumentStorage].
func (s *documentStorage) ExportDatabase(ctx context.Context) ([]byte, error) {
	return s.db.Export(ctx)
}

// RestoreDatabase implements [DocumentStorage].
func (s *documentStorage) RestoreDatabase(ctx context.Context, image []byte) error {
	return s.db.Restore(ctx, image)
}

// SetMetadata implements [DocumentStorage].
func (s *documentStorage) SetMetadata(ctx context.Context, key, value string) error {
	return s.metadata.Set(ctx, key, value)
}

// GetMetadata implements [DocumentStorage].
func (s *documentStorage) GetMetadata(ctx context.Context, key string) (string, error) {
	return s.metadata.Get(ctx, key)
}

// Close implements [DocumentStorage]. The key is left to its owner.
func (s *documentStorage) Close() error {
	return s.db.Close()
}

// seal serialises and encrypts doc. The plaintext buffer is wiped once the
// ciphertext exists.
func (s *documentStorage) seal(doc *models.Document) (models.EncryptedRecord, error) {
	body := models.RecordBody{
		Data:           doc.Data,
		Tags:           models.NormalizeTags(doc.Metadata.Tags),
		SearchableText: doc.Metadata.SearchableText,
		ContentHash:    doc.Metadata.ContentHash,
	}

	plaintext, err := json.Marshal(body)
	if err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("serialize document body: %w", err)
	}
	defer crypto.SecureWipe(plaintext)

	ciphertext, nonce, err := s.keyChain.Encrypt(plaintext, s.key)
	if err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("encrypt document body: %w", err)
	}

	status := doc.Metadata.SyncStatus
	if status == "" {
		status = models.SyncStatusLocal
	}

	rec := models.EncryptedRecord{
		ID:            doc.ID,
		Type:          doc.Type,
		EncryptedData: ciphertext,
		Nonce:         nonce,
		Checksum:      s.keyChain.Hash(ciphertext),
		Size:          int64(len(plaintext)),
		CreatedAt:     doc.CreatedAt.UnixMilli(),
		UpdatedAt:     doc.UpdatedAt.UnixMilli(),
		StoredAt:      s.now().UnixMilli(),
		Version:       doc.Version,
		SyncStatus:    status,
	}
	if doc.Metadata.LastSyncAt != nil {
		ms := doc.Metadata.LastSyncAt.UnixMilli()
		rec.LastSyncAt = &ms
	}
	return rec, nil
}

// open verifies the checksum in constant time, then decrypts and decodes the
// body. A checksum mismatch never reaches the decryption step.
func (s *documentStorage) open(rec models.EncryptedRecord) (*models.Document, error) {
	if !crypto.ConstantTimeEqual(s.keyChain.Hash(rec.EncryptedData), rec.Checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch for id=%s", ErrIntegrity, rec.ID)
	}

	plaintext, err := s.keyChain.Decrypt(rec.EncryptedData, rec.Nonce, s.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt document id=%s: %w", rec.ID, err)
	}
	defer crypto.SecureWipe(plaintext)

	var body models.RecordBody
	if err := json.Unmarshal(plaintext, &body); err != nil {
		return nil, fmt.Errorf("%w: undecodable body for id=%s: %w", ErrIntegrity, rec.ID, err)
	}

	doc := &models.Document{
		ID:   rec.ID,
		Type: rec.Type,
		Data: body.Data,
		Metadata: models.Metadata{
			Tags:           models.NormalizeTags(body.Tags),
			SearchableText: body.SearchableText,
			ContentHash:    body.ContentHash,
			SyncStatus:     rec.SyncStatus,
		},
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(rec.UpdatedAt).UTC(),
		Version:   rec.Version,
	}
	if rec.LastSyncAt != nil {
		t := time.UnixMilli(*rec.LastSyncAt).UTC()
		doc.Metadata.LastSyncAt = &t
	}
	return doc, nil
}

func (s *documentStorage) openAll(ctx context.Context, recs []models.EncryptedRecord) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := s.open(rec)
		if err != nil {
			logger.FromContext(ctx).Err(err).
				Str("func", "documentStorage.openAll").
				Str("id", rec.ID).
				Msg("stored record failed verification")
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
