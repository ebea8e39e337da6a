// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/models"
)

const (
	documentsTable = "documents"
	metadataTable  = "vault_metadata"
)

// recordColumns is the column order every documents SELECT uses; scanRecord
// depends on it.
var recordColumns = []string{
	"id",
	"type",
	"encrypted_data",
	"nonce",
	"checksum",
	"size",
	"created_at",
	"updated_at",
	"stored_at",
	"version",
	"sync_status",
	"last_sync_at",
}

const upsertRecordSuffix = `ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			encrypted_data = excluded.encrypted_data,
			nonce = excluded.nonce,
			checksum = excluded.checksum,
			size = excluded.size,
			updated_at = excluded.updated_at,
			stored_at = excluded.stored_at,
			version = excluded.version,
			sync_status = excluded.sync_status,
			last_sync_at = excluded.last_sync_at`

const (
	selectStats = `
		SELECT
			COUNT(*),
			COALESCE(SUM(size), 0),
			COALESCE(SUM(LENGTH(encrypted_data)), 0)
		FROM documents;`

	selectCountByType = `
		SELECT type, COUNT(*)
		FROM documents
		GROUP BY type
		ORDER BY type;`

	upsertMetadata = `
		INSERT INTO vault_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at;`

	selectMetadata = `
		SELECT value
		FROM vault_metadata
		WHERE key = ?;`
)

// builder is the squirrel statement builder configured for SQLite.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// selectRecords is the base SELECT over all record columns.
func selectRecords() sq.SelectBuilder {
	return builder.Select(recordColumns...).From(documentsTable)
}

func buildUpsertRecordQuery(rec models.EncryptedRecord) (string, []any, error) {
	return builder.Insert(documentsTable).
		Columns(recordColumns...).
		Values(
			rec.ID,
			rec.Type,
			rec.EncryptedData,
			rec.Nonce,
			rec.Checksum,
			rec.Size,
			rec.CreatedAt,
			rec.UpdatedAt,
			rec.StoredAt,
			rec.Version,
			string(rec.SyncStatus),
			rec.LastSyncAt,
		).
		Suffix(upsertRecordSuffix).
		ToSql()
}

func buildSelectRecordQuery(id string) (string, []any, error) {
	return selectRecords().Where(sq.Eq{"id": id}).ToSql()
}

// buildSelectByTypeQuery orders most recently updated first; id breaks ties
// so pagination is stable. limit <= 0 means no limit.
func buildSelectByTypeQuery(docType string, limit, offset int) (string, []any, error) {
	q := selectRecords().
		Where(sq.Eq{"type": docType}).
		OrderBy("updated_at DESC", "id ASC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		if limit <= 0 {
			// SQLite only accepts OFFSET after a LIMIT.
			q = q.Limit(math.MaxInt64)
		}
		q = q.Offset(uint64(offset))
	}
	return q.ToSql()
}

func buildSelectTypesQuery() (string, []any, error) {
	return builder.Select("DISTINCT type").From(documentsTable).OrderBy("type").ToSql()
}

func buildDeleteRecordQuery(id string) (string, []any, error) {
	return builder.Delete(documentsTable).Where(sq.Eq{"id": id}).ToSql()
}

func buildUpdateSyncStatusQuery(ids []string, status models.SyncStatus, lastSyncAt *int64) (string, []any, error) {
	q := builder.Update(documentsTable).
		Set("sync_status", string(status)).
		Where(sq.Eq{"id": ids})

	if lastSyncAt != nil {
		q = q.Set("last_sync_at", *lastSyncAt)
	}
	return q.ToSql()
}
