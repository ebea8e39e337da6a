// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the document
// vault. It aggregates all sub-configurations and is populated by merging
// built-in defaults, environment variables, command-line flags and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Vault holds the unlock material and the optional subsystem switches.
	Vault Vault `envPrefix:"VAULT_"`

	// Crypto holds the Argon2id cost parameters used for passphrase-derived
	// keys and password-protected backups.
	Crypto Crypto `envPrefix:"CRYPTO_"`

	// Storage holds the SQLite database and change journal locations.
	Storage Storage `envPrefix:"STORAGE_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// Log holds logger settings.
	Log Log `envPrefix:"LOG_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from defaults, environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Vault holds vault-level settings.
type Vault struct {
	// Passphrase unlocks the vault; the key is derived with Argon2id and a
	// salt persisted inside the store.
	// Env: VAULT_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`

	// KeyFile points to a file holding a raw or hex-encoded 32-byte key.
	// Mutually exclusive with Passphrase.
	// Env: VAULT_KEY_FILE
	KeyFile string `env:"KEY_FILE"`

	// SearchDisabled turns the in-memory search index off.
	// Env: VAULT_SEARCH_DISABLED
	SearchDisabled bool `env:"SEARCH_DISABLED"`

	// SyncDisabled turns the change queue off.
	// Env: VAULT_SYNC_DISABLED
	SyncDisabled bool `env:"SYNC_DISABLED"`
}

// Crypto holds Argon2id tuning parameters. Zero values fall back to the
// crypto package defaults.
type Crypto struct {
	// Env: CRYPTO_ARGON_TIME
	ArgonTime uint32 `env:"ARGON_TIME"`
	// Env: CRYPTO_ARGON_MEMORY_KIB
	ArgonMemoryKiB uint32 `env:"ARGON_MEMORY_KIB"`
	// Env: CRYPTO_ARGON_THREADS
	ArgonThreads uint8 `env:"ARGON_THREADS"`
}

// Storage groups the configuration for the persistence backends.
type Storage struct {
	// DB holds the relational database connection settings.
	DB DB `envPrefix:"DB_"`

	// Journal holds the durable change journal settings.
	Journal Journal `envPrefix:"JOURNAL_"`
}

// DB holds connection settings for the SQLite document store.
type DB struct {
	// DSN is a file path, ":memory:" or a "file:" URI.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Journal holds settings for the bbolt-backed pending change journal.
type Journal struct {
	// Path is the bbolt file. Empty keeps pending changes in memory only.
	// Env: STORAGE_JOURNAL_PATH
	Path string `env:"PATH"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval is the period of the background synchronization job.
	// Zero disables the job.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Log holds logger settings.
type Log struct {
	// Level is a zerolog level name ("debug", "info", ...).
	// Env: LOG_LEVEL
	Level string `env:"LEVEL"`
}

// SearchEnabled reports whether the search index should be wired.
func (v Vault) SearchEnabled() bool { return !v.SearchDisabled }

// SyncEnabled reports whether the sync engine should be wired.
func (v Vault) SyncEnabled() bool { return !v.SyncDisabled }

// Defaults returns the built-in configuration used as the lowest-priority
// source.
func Defaults() *StructuredConfig {
	return &StructuredConfig{
		Storage: Storage{
			DB: DB{DSN: "vault.db"},
		},
		Log: Log{Level: "info"},
	}
}

// GetStructuredConfig loads, merges, and validates the configuration from all
// available sources in the following priority order (last source wins for
// non-zero fields):
//  1. Built-in defaults
//  2. Environment variables
//  3. Command-line flags parsed from args
//  4. JSON file (path resolved from sources 1-3)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	fs, fromFlags := NewFlagSet("vault")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return Load(fromFlags)
}

// Load is like [GetStructuredConfig] for callers that parse flags themselves
// (cobra commands registering the set from [NewFlagSet]). fromFlags may be nil.
func Load(fromFlags *StructuredConfig) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(fromFlags).
		withJSON().
		build()
}
