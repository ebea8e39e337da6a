// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// validate checks that the final merged [StructuredConfig] satisfies all
// invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or one of the ErrInvalid*
// sentinels wrapped with a short reason.
func (cfg *StructuredConfig) validate() error {
	if cfg.Vault.Passphrase != "" && cfg.Vault.KeyFile != "" {
		return fmt.Errorf("%w: passphrase and key file are mutually exclusive", ErrInvalidVaultConfigs)
	}

	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: empty DSN", ErrInvalidStorageConfigs)
	}

	if cfg.Workers.SyncInterval < 0 {
		return fmt.Errorf("%w: negative sync interval", ErrInvalidWorkerConfigs)
	}

	if cfg.Crypto.ArgonMemoryKiB != 0 && cfg.Crypto.ArgonMemoryKiB < 8 {
		return fmt.Errorf("%w: argon memory below 8 KiB", ErrInvalidCryptoConfigs)
	}

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLogConfigs, err)
		}
	}

	return nil
}
