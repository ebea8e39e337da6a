// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository returns a [RecordRepository] backed by db.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *recordRepository) Upsert(ctx context.Context, rec models.EncryptedRecord) error {
	log := logger.FromContext(ctx)

	query, args, err := buildUpsertRecordQuery(rec)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Upsert").Str("id", rec.ID).Msg("failed to build upsert query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	err = r.withRetry(ctx, func(ctx context.Context) error {
		_, execErr := r.DB.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Upsert").
			Str("id", rec.ID).
			Str("type", rec.Type).
			Msg("failed to execute upsert for document record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *recordRepository) Get(ctx context.Context, id string) (models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectRecordQuery(id)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Get").Str("id", id).Msg("failed to build select query")
		return models.EncryptedRecord{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.EncryptedRecord{}, fmt.Errorf("%w: id=%s", ErrDocumentNotFound, id)
	}
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Get").Str("id", id).Msg("failed to scan document row")
		return models.EncryptedRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return rec, nil
}

func (r *recordRepository) ListByType(ctx context.Context, docType string, limit, offset int) ([]models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectByTypeQuery(docType, limit, offset)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.ListByType").Str("type", docType).Msg("failed to build select query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.queryRecords(ctx, "recordRepository.ListByType", query, args)
}

func (r *recordRepository) Query(ctx context.Context, q sq.SelectBuilder) ([]models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := q.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Query").Msg("failed to build query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.queryRecords(ctx, "recordRepository.Query", query, args)
}

// queryRecords reads every row before returning so the single pooled
// connection is released before callers start decrypting.
func (r *recordRepository) queryRecords(ctx context.Context, fn, query string, args []any) ([]models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute query for document records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.EncryptedRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan document row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", fn).Msg("error iterating document rows")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

func (r *recordRepository) Types(ctx context.Context) ([]string, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectTypesQuery()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Types").Msg("failed to query document types")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			log.Err(err).Str("func", "recordRepository.Types").Msg("failed to scan document type")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return types, nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) (bool, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteRecordQuery(id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var affected int64
	err = r.withRetry(ctx, func(ctx context.Context) error {
		res, execErr := r.DB.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Delete").Str("id", id).Msg("failed to delete document record")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return affected > 0, nil
}

func (r *recordRepository) UpdateSyncStatus(ctx context.Context, ids []string, status models.SyncStatus, lastSyncAt *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	log := logger.FromContext(ctx)

	query, args, err := buildUpdateSyncStatusQuery(ids, status, lastSyncAt)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var affected int64
	err = r.withRetry(ctx, func(ctx context.Context) error {
		res, execErr := r.DB.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpdateSyncStatus").
			Int("ids", len(ids)).
			Str("status", string(status)).
			Msg("failed to update sync status")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return affected, nil
}

func (r *recordRepository) Stats(ctx context.Context) (models.StorageStats, error) {
	log := logger.FromContext(ctx)

	stats := models.StorageStats{ByType: make(map[string]int64)}
	err := r.DB.QueryRowContext(ctx, selectStats).Scan(&stats.Count, &stats.TotalSize, &stats.EncryptedSize)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Stats").Msg("failed to query totals")
		return models.StorageStats{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, selectCountByType)
	if err != nil {
		log.Err(err).Str("func", "recordRepository.Stats").Msg("failed to query counts per type")
		return models.StorageStats{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t string
			n int64
		)
		if err := rows.Scan(&t, &n); err != nil {
			return models.StorageStats{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		stats.ByType[t] = n
	}
	if err := rows.Err(); err != nil {
		return models.StorageStats{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.EncryptedRecord, error) {
	var (
		rec        models.EncryptedRecord
		status     string
		lastSyncAt sql.NullInt64
	)

	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.EncryptedData,
		&rec.Nonce,
		&rec.Checksum,
		&rec.Size,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.StoredAt,
		&rec.Version,
		&status,
		&lastSyncAt,
	)
	if err != nil {
		return models.EncryptedRecord{}, err
	}

	rec.SyncStatus = models.SyncStatus(status)
	if lastSyncAt.Valid {
		v := lastSyncAt.Int64
		rec.LastSyncAt = &v
	}
	return rec, nil
}
