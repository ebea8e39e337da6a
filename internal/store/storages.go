// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
)

// KeySource derives the vault key. It runs after migrations, so it can read
// and write the metadata table.
type KeySource func(ctx context.Context, meta MetadataRepository) (*crypto.Key, error)

// OpenDocumentStorage initialises the storage layer. It performs the
// following steps:
//  1. Opens the SQLite database described by cfg, creating the file if it
//     does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Obtains the key from unlock.
//  4. Returns a [DocumentStorage] encrypting with that key.
//
// The connection is closed again if any step fails.
func OpenDocumentStorage(ctx context.Context, cfg config.DB, keyChain crypto.KeyChain, unlock KeySource, logger *logger.Logger) (DocumentStorage, *crypto.Key, error) {
	logger.Info().Msg("opening document storage...")

	db, err := NewConnectSQLite(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	key, err := unlock(ctx, NewMetadataRepository(db))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return NewDocumentStorage(db, keyChain, key, logger), key, nil
}
