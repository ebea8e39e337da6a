// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cli

import (
	"errors"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/internal/vault"
)

// Exit codes follow sysexits(3).
const (
	ExitFailure = 1
	ExitDataErr = 65
	ExitIOErr   = 74
	ExitNoPerm  = 77
	ExitConfig  = 78
)

// Hints printed below the error for failures the user can fix.
const (
	MsgKeyMismatch        = "the key file or VAULT_PASSPHRASE does not open this vault"
	MsgInvalidKey         = "the key file must hold 32 raw bytes or 64 hex characters"
	MsgNotInitialized     = "the vault could not be opened"
	MsgSubsystemDisabled  = "the command needs search or sync, which is disabled in the configuration"
	MsgInvalidConfig      = "check the flags, environment and config file"
	MsgBackupVerification = "the backup is damaged or needs --password-env"
	MsgDecryption         = "the backup password is wrong"
	MsgCorruptedStore     = "the vault database is corrupted; restore it from a backup"
	MsgStorageFailure     = "the vault database could not be read or written"
)

type mapping struct {
	target error
	code   int
	hint   string
}

// errorMap is checked in order; the first match wins.
var errorMap = []mapping{
	{vault.ErrKeyMismatch, ExitNoPerm, MsgKeyMismatch},
	{crypto.ErrInvalidKey, ExitNoPerm, MsgInvalidKey},
	{vault.ErrConfiguration, ExitConfig, MsgSubsystemDisabled},
	{config.ErrInvalidVaultConfigs, ExitConfig, MsgInvalidConfig},
	{config.ErrInvalidStorageConfigs, ExitConfig, MsgInvalidConfig},
	{config.ErrInvalidCryptoConfigs, ExitConfig, MsgInvalidConfig},
	{config.ErrInvalidWorkerConfigs, ExitConfig, MsgInvalidConfig},
	{config.ErrInvalidLogConfigs, ExitConfig, MsgInvalidConfig},
	{vault.ErrBackupVerification, ExitDataErr, MsgBackupVerification},
	{crypto.ErrDecryption, ExitDataErr, MsgDecryption},
	{store.ErrIntegrity, ExitDataErr, MsgCorruptedStore},
	{store.ErrInvalidSnapshot, ExitDataErr, MsgBackupVerification},
	{vault.ErrNotInitialized, ExitFailure, MsgNotInitialized},

	{store.ErrBuildingSQLQuery, ExitIOErr, MsgStorageFailure},
	{store.ErrExecutingQuery, ExitIOErr, MsgStorageFailure},
	{store.ErrBeginningTransaction, ExitIOErr, MsgStorageFailure},
	{store.ErrCommitingTransaction, ExitIOErr, MsgStorageFailure},
	{store.ErrExecutingStatement, ExitIOErr, MsgStorageFailure},
	{store.ErrScanningRow, ExitIOErr, MsgStorageFailure},
	{store.ErrScanningRows, ExitIOErr, MsgStorageFailure},
}

// ExitCode maps err to a process exit code and an optional hint for the user.
func ExitCode(err error) (code int, hint string) {
	if err == nil {
		return 0, ""
	}
	for _, m := range errorMap {
		if errors.Is(err, m.target) {
			return m.code, m.hint
		}
	}
	return ExitFailure, ""
}
