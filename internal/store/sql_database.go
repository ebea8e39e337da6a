package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/migrations"
)

// ErrorClassificator decides whether a failed database operation may be
// retried.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}

// DB wraps the SQLite handle together with the error classifier and logger.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger

	maxRetries   uint64
	retryBackoff time.Duration
}

// NewDB wraps an already opened *sql.DB. Used by tests and by callers that
// manage the connection themselves.
func NewDB(conn *sql.DB, log *logger.Logger) *DB {
	return &DB{
		DB:                 conn,
		errorClassificator: NewSQLiteErrorClassifier(),
		logger:             log,
		maxRetries:         3,
		retryBackoff:       10 * time.Millisecond,
	}
}

// Migrate applies the embedded schema.
func (db *DB) Migrate() error {
	if db.logger == nil {
		return migrations.Migrate(db.DB, nil)
	}
	return migrations.Migrate(db.DB, db.logger)
}

// withRetry runs fn and retries it with exponential backoff while the error
// is classified as [Retryable] (SQLITE_BUSY, SQLITE_LOCKED).
func (db *DB) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(db.maxRetries, retry.NewExponential(db.retryBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && db.errorClassificator.Classify(err) == Retryable {
			logger.FromContext(ctx).Warn().Err(err).Str("func", "DB.withRetry").Msg("retrying busy database")
			return retry.RetryableError(err)
		}
		return err
	})
}
