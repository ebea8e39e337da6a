package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the low-level repository over the documents table. It
// moves [models.EncryptedRecord] values in and out of SQLite and never sees
// plaintext.
type RecordRepository interface {
	Upsert(ctx context.Context, rec models.EncryptedRecord) error
	Get(ctx context.Context, id string) (models.EncryptedRecord, error)
	ListByType(ctx context.Context, docType string, limit, offset int) ([]models.EncryptedRecord, error)
	Types(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) (bool, error)
	UpdateSyncStatus(ctx context.Context, ids []string, status models.SyncStatus, lastSyncAt *int64) (int64, error)
	Query(ctx context.Context, q sq.SelectBuilder) ([]models.EncryptedRecord, error)
	Stats(ctx context.Context) (models.StorageStats, error)
}

// MetadataRepository is the key-value side table for engine bookkeeping.
type MetadataRepository interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

// DocumentStorage is the encrypted document store used by the vault. Every
// document body is encrypted with the vault key before it reaches
// [RecordRepository], and every read verifies the ciphertext checksum before
// decrypting.
type DocumentStorage interface {
	// StoreDocument encrypts and upserts doc, overwriting any prior record
	// with the same id.
	StoreDocument(ctx context.Context, doc *models.Document) error

	// GetDocument returns [ErrDocumentNotFound] for an absent id,
	// [ErrIntegrity] for a checksum mismatch and crypto.ErrDecryption for a
	// failed authentication tag.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// GetDocumentsByType returns documents most recently updated first.
	// limit <= 0 means no limit.
	GetDocumentsByType(ctx context.Context, docType string, limit, offset int) ([]*models.Document, error)

	// GetDocumentTypes lists the distinct stored types.
	GetDocumentTypes(ctx context.Context) ([]string, error)

	// DeleteDocument reports whether a row existed.
	DeleteDocument(ctx context.Context, id string) (bool, error)

	// UpdateSyncStatus sets the cleartext sync columns of ids without
	// re-encrypting the bodies. A nil at keeps last_sync_at.
	UpdateSyncStatus(ctx context.Context, ids []string, status models.SyncStatus, at *time.Time) error

	// SelectBuilder returns the base SELECT for [DocumentStorage.QueryDocuments].
	SelectBuilder() sq.SelectBuilder

	// QueryDocuments runs a SELECT built from SelectBuilder and decrypts
	// every row.
	QueryDocuments(ctx context.Context, q sq.SelectBuilder) ([]*models.Document, error)

	GetStats(ctx context.Context) (models.StorageStats, error)

	// ExportDatabase returns an image of the whole store. Nothing is
	// decrypted.
	ExportDatabase(ctx context.Context) ([]byte, error)

	// RestoreDatabase replaces documents and metadata with the contents of an
	// image produced by ExportDatabase, in one transaction.
	RestoreDatabase(ctx context.Context, image []byte) error

	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)

	Close() error
}
