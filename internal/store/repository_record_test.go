package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newDBFromSQL wraps a sqlmock handle with a fast retry backoff.
func newDBFromSQL(db *sql.DB) *DB {
	wrapped := NewDB(db, logger.Nop())
	wrapped.retryBackoff = time.Millisecond
	return wrapped
}

func newTestRepo(t *testing.T) (RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	return NewRecordRepository(newDBFromSQL(db), logger.Nop()), mock
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

var recordColumnNames = []string{
	"id", "type", "encrypted_data", "nonce", "checksum", "size",
	"created_at", "updated_at", "stored_at", "version", "sync_status", "last_sync_at",
}

func sampleRecord(id string) models.EncryptedRecord {
	return models.EncryptedRecord{
		ID:            id,
		Type:          "message",
		EncryptedData: []byte{0x01, 0x02},
		Nonce:         make([]byte, 12),
		Checksum:      make([]byte, 32),
		Size:          10,
		CreatedAt:     1000,
		UpdatedAt:     2000,
		StoredAt:      3000,
		Version:       1,
		SyncStatus:    models.SyncStatusLocal,
	}
}

func recordRow(rec models.EncryptedRecord) *sqlmock.Rows {
	var lastSync any
	if rec.LastSyncAt != nil {
		lastSync = *rec.LastSyncAt
	}
	return sqlmock.NewRows(recordColumnNames).AddRow(
		rec.ID, rec.Type, rec.EncryptedData, rec.Nonce, rec.Checksum, rec.Size,
		rec.CreatedAt, rec.UpdatedAt, rec.StoredAt, rec.Version, string(rec.SyncStatus), lastSync,
	)
}

// ─────────────────────────────────────────────
// Upsert
// ─────────────────────────────────────────────

func TestRecordRepository_Upsert_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	rec := sampleRecord("a")

	mock.ExpectExec(`INSERT INTO documents .* ON CONFLICT\(id\) DO UPDATE SET`).
		WithArgs(rec.ID, rec.Type, rec.EncryptedData, rec.Nonce, rec.Checksum, rec.Size,
			rec.CreatedAt, rec.UpdatedAt, rec.StoredAt, rec.Version, "local", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(testContext(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Upsert_RetriesBusy(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`INSERT INTO documents`).WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	mock.ExpectExec(`INSERT INTO documents`).WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(testContext(), sampleRecord("a")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Upsert_NonRetryableError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`INSERT INTO documents`).WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

	err := repo.Upsert(testContext(), sampleRecord("a"))
	require.ErrorIs(t, err, ErrExecutingStatement)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────
// Get
// ─────────────────────────────────────────────

func TestRecordRepository_Get_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	rec := sampleRecord("a")
	synced := int64(5000)
	rec.LastSyncAt = &synced

	mock.ExpectQuery(`SELECT id, type, encrypted_data, .* FROM documents WHERE id = \?`).
		WithArgs("a").
		WillReturnRows(recordRow(rec))

	got, err := repo.Get(testContext(), "a")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Get_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM documents WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(recordColumnNames))

	_, err := repo.Get(testContext(), "missing")
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRecordRepository_Get_QueryError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM documents`).WillReturnError(errors.New("disk I/O error"))

	_, err := repo.Get(testContext(), "a")
	require.ErrorIs(t, err, ErrScanningRow)
	require.NotErrorIs(t, err, ErrDocumentNotFound)
}

// ─────────────────────────────────────────────
// ListByType / Types
// ─────────────────────────────────────────────

func TestRecordRepository_ListByType_Paginates(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM documents WHERE type = \? ORDER BY updated_at DESC, id ASC LIMIT 2 OFFSET 1`).
		WithArgs("message").
		WillReturnRows(recordRow(sampleRecord("b")))

	recs, err := repo.ListByType(testContext(), "message", 2, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].ID)
}

func TestRecordRepository_ListByType_ScanError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM documents WHERE type = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("only-one-column"))

	_, err := repo.ListByType(testContext(), "message", 0, 0)
	require.ErrorIs(t, err, ErrScanningRows)
}

func TestRecordRepository_Types(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`SELECT DISTINCT type FROM documents ORDER BY type`).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("contact").AddRow("message"))

	types, err := repo.Types(testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"contact", "message"}, types)
}

// ─────────────────────────────────────────────
// Delete / UpdateSyncStatus
// ─────────────────────────────────────────────

func TestRecordRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "existing row", affected: 1, want: true},
		{name: "absent row", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestRepo(t)
			mock.ExpectExec(`DELETE FROM documents WHERE id = \?`).
				WithArgs("a").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.Delete(testContext(), "a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordRepository_UpdateSyncStatus(t *testing.T) {
	repo, mock := newTestRepo(t)
	at := int64(42)

	mock.ExpectExec(`UPDATE documents SET sync_status = \?, last_sync_at = \? WHERE id IN \(\?,\?\)`).
		WithArgs("synced", at, "a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateSyncStatus(testContext(), []string{"a", "b"}, models.SyncStatusSynced, &at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_UpdateSyncStatus_NoIDs(t *testing.T) {
	repo, mock := newTestRepo(t)

	n, err := repo.UpdateSyncStatus(testContext(), nil, models.SyncStatusSynced, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────
// Stats
// ─────────────────────────────────────────────

func TestRecordRepository_Stats(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),\s+COALESCE\(SUM\(size\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "size", "enc"}).AddRow(3, 300, 360))
	mock.ExpectQuery(`SELECT type, COUNT\(\*\)\s+FROM documents\s+GROUP BY type`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).AddRow("contact", 1).AddRow("message", 2))

	stats, err := repo.Stats(testContext())
	require.NoError(t, err)
	assert.Equal(t, models.StorageStats{
		Count:         3,
		TotalSize:     300,
		EncryptedSize: 360,
		ByType:        map[string]int64{"contact": 1, "message": 2},
	}, stats)
}

// ─────────────────────────────────────────────
// Metadata
// ─────────────────────────────────────────────

func TestMetadataRepository_GetMissing(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewMetadataRepository(newDBFromSQL(db))

	mock.ExpectQuery(`SELECT value\s+FROM vault_metadata`).
		WithArgs("kdf_salt").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := repo.Get(testContext(), "kdf_salt")
	require.ErrorIs(t, err, ErrMetadataNotFound)
}

func TestSQLiteErrorClassifier(t *testing.T) {
	c := NewSQLiteErrorClassifier()

	assert.Equal(t, Retryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.Equal(t, Retryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.Equal(t, NonRetryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.Equal(t, NonRetryable, c.Classify(errors.New("plain")))
	assert.Equal(t, NonRetryable, c.Classify(nil))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_busy_timeout=5000", sqliteDSN(":memory:"))
	assert.Equal(t, "/tmp/v.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("/tmp/v.db"))
	assert.Equal(t, "file:v.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("file:v.db?cache=shared"))
}
