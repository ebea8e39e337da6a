// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

// CreateBackup exports the whole store and re-encrypts the image. With a
// non-empty password the backup key is derived from it with a fresh salt;
// otherwise the vault key is used.
func (v *Vault) CreateBackup(ctx context.Context, password string) (*models.BackupData, error) {
	backup, err := v.createBackup(ctx, password)
	if err != nil {
		return nil, err
	}
	v.emit(models.Event{Name: models.EventBackupCreated, Backup: backup})
	return backup, nil
}

func (v *Vault) createBackup(ctx context.Context, password string) (*models.BackupData, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	log := logger.FromContext(ctx)

	stats, err := v.storage.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	image, err := v.storage.ExportDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("export database: %w", err)
	}

	key, salt, err := v.backupKey(password, nil)
	if err != nil {
		return nil, err
	}
	if key != v.key {
		defer key.Wipe()
	}

	ciphertext, nonce, err := v.keyChain.Encrypt(image, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt backup: %w", err)
	}

	now := v.now()
	backup := &models.BackupData{
		Version:       models.BackupFormatVersion,
		Timestamp:     now.UnixMilli(),
		EncryptedData: ciphertext,
		Nonce:         nonce,
		Salt:          salt,
		Checksum:      v.keyChain.HashHex(ciphertext),
		DocumentCount: stats.Count,
	}

	if err := v.storage.SetMetadata(ctx, metaLastBackupAt, strconv.FormatInt(backup.Timestamp, 10)); err != nil {
		log.Warn().Err(err).Str("func", "Vault.CreateBackup").Msg("failed to record backup time")
	}

	log.Info().
		Str("func", "Vault.CreateBackup").
		Int64("documents", backup.DocumentCount).
		Int("bytes", len(ciphertext)).
		Msg("backup created")
	return backup, nil
}

// RestoreFromBackup verifies backup, decrypts it and replaces the store
// contents in place. The checksum is verified before anything is decrypted.
// The vault keeps its own salt and key check value, and the index is
// rebuilt from the restored documents.
func (v *Vault) RestoreFromBackup(ctx context.Context, backup *models.BackupData, password string) error {
	if err := v.restoreFromBackup(ctx, backup, password); err != nil {
		return err
	}
	v.emit(models.Event{Name: models.EventVaultRestored})
	return nil
}

func (v *Vault) restoreFromBackup(ctx context.Context, backup *models.BackupData, password string) error {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	log := logger.FromContext(ctx)

	if backup == nil {
		return fmt.Errorf("%w: no backup", ErrBackupVerification)
	}
	if backup.Version != models.BackupFormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBackupVerification, backup.Version)
	}
	want, err := hex.DecodeString(backup.Checksum)
	if err != nil || !crypto.ConstantTimeEqual(v.keyChain.Hash(backup.EncryptedData), want) {
		log.Warn().Str("func", "Vault.RestoreFromBackup").Msg("backup checksum mismatch")
		return fmt.Errorf("%w: checksum mismatch", ErrBackupVerification)
	}
	if len(backup.Salt) > 0 && password == "" {
		return fmt.Errorf("%w: backup is password protected", ErrBackupVerification)
	}

	if len(backup.Salt) == 0 {
		// sealed with the vault key
		password = ""
	}
	key, _, err := v.backupKey(password, backup.Salt)
	if err != nil {
		return err
	}
	if key != v.key {
		defer key.Wipe()
	}

	image, err := v.keyChain.Decrypt(backup.EncryptedData, backup.Nonce, key)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	// the restored side table belongs to the vault at backup time
	identity := make(map[string]string, 3)
	for _, k := range []string{metaKDFSalt, metaKeyCheck, metaActorID} {
		if val, err := v.storage.GetMetadata(ctx, k); err == nil {
			identity[k] = val
		}
	}

	if err := v.storage.RestoreDatabase(ctx, image); err != nil {
		return fmt.Errorf("restore database: %w", err)
	}
	for k, val := range identity {
		if err := v.storage.SetMetadata(ctx, k, val); err != nil {
			return fmt.Errorf("restore vault identity: %w", err)
		}
	}

	if v.index != nil {
		if _, err := rebuild(ctx, v.storage, v.index); err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
	}

	log.Info().
		Str("func", "Vault.RestoreFromBackup").
		Int64("documents", backup.DocumentCount).
		Msg("vault restored from backup")
	return nil
}

// backupKey returns the vault key for an empty password. Otherwise it derives
// a key from password and salt, generating the salt when salt is nil.
func (v *Vault) backupKey(password string, salt []byte) (*crypto.Key, []byte, error) {
	if password == "" {
		return v.key, nil, nil
	}
	if salt == nil {
		var err error
		if salt, err = v.keyChain.GenerateSalt(); err != nil {
			return nil, nil, err
		}
	}
	key, err := v.keyChain.DeriveKey(password, salt, v.opts.WorkFactor)
	if err != nil {
		return nil, nil, fmt.Errorf("derive backup key: %w", err)
	}
	return key, salt, nil
}
