// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
)

// sqliteHeader is the magic string every SQLite database file starts with.
var sqliteHeader = []byte("SQLite format 3\x00")

const snapshotSchema = "snapshot"

// Export writes a consistent image of the database with VACUUM INTO and
// returns its bytes. Document bodies stay encrypted.
func (db *DB) Export(ctx context.Context) ([]byte, error) {
	log := logger.FromContext(ctx)

	dir, err := os.MkdirTemp("", "vault-export-*")
	if err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		log.Err(err).Str("func", "DB.Export").Msg("failed to vacuum database into snapshot")
		return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	log.Debug().Str("func", "DB.Export").Int("bytes", len(image)).Msg("database exported")
	return image, nil
}

// Restore replaces the documents and vault_metadata tables with the contents
// of image. The image is attached as a separate schema and copied inside one
// transaction; on any failure the current contents are kept.
func (db *DB) Restore(ctx context.Context, image []byte) error {
	log := logger.FromContext(ctx)

	if !bytes.HasPrefix(image, sqliteHeader) {
		return fmt.Errorf("%w: missing sqlite header", ErrInvalidSnapshot)
	}

	dir, err := os.MkdirTemp("", "vault-restore-*")
	if err != nil {
		return fmt.Errorf("create restore dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	// ATTACH is per connection, so pin one for the whole restore.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS `+snapshotSchema, path); err != nil {
		log.Err(err).Str("func", "DB.Restore").Msg("failed to attach snapshot")
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `DETACH DATABASE `+snapshotSchema); err != nil {
			log.Err(err).Str("func", "DB.Restore").Msg("failed to detach snapshot")
		}
	}()

	var tables int
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+snapshotSchema+`.sqlite_master WHERE type = 'table' AND name IN (?, ?)`,
		documentsTable, metadataTable,
	).Scan(&tables)
	if err != nil {
		log.Err(err).Str("func", "DB.Restore").Msg("snapshot schema is unreadable")
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if tables != 2 {
		return fmt.Errorf("%w: expected tables are missing", ErrInvalidSnapshot)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer func() { _ = tx.Rollback() }()

	columns := strings.Join(recordColumns, ", ")
	statements := []string{
		`DELETE FROM main.` + documentsTable,
		`INSERT INTO main.` + documentsTable + ` (` + columns + `) SELECT ` + columns + ` FROM ` + snapshotSchema + `.` + documentsTable,
		`DELETE FROM main.` + metadataTable,
		`INSERT INTO main.` + metadataTable + ` (key, value, updated_at) SELECT key, value, updated_at FROM ` + snapshotSchema + `.` + metadataTable,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			log.Err(err).Str("func", "DB.Restore").Str("stmt", stmt).Msg("failed to copy snapshot")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Info().Str("func", "DB.Restore").Msg("database restored from snapshot")
	return nil
}
