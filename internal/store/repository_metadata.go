package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
)

type metadataRepository struct {
	*DB
	now func() time.Time
}

// NewMetadataRepository returns a [MetadataRepository] backed by db.
func NewMetadataRepository(db *DB) MetadataRepository {
	return &metadataRepository{DB: db, now: time.Now}
}

func (m *metadataRepository) Set(ctx context.Context, key, value string) error {
	err := m.withRetry(ctx, func(ctx context.Context) error {
		_, execErr := m.DB.ExecContext(ctx, upsertMetadata, key, value, m.now().UnixMilli())
		return execErr
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "metadataRepository.Set").
			Str("key", key).
			Msg("failed to upsert metadata")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (m *metadataRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := m.DB.QueryRowContext(ctx, selectMetadata, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrMetadataNotFound, key)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "metadataRepository.Get").
			Str("key", key).
			Msg("failed to query metadata")
		return "", fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return value, nil
}
