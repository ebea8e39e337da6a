// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/internal/utils"
)

// Options configure a [Vault]. Exactly one of Key and Passphrase must be set.
type Options struct {
	// DB is the SQLite location.
	DB config.DB

	// Key is a raw 32-byte key supplied by the caller. The vault keeps its own
	// copy and wipes it on Close.
	Key []byte

	// Passphrase derives the key with Argon2id. The salt is generated on first
	// use and stored in the vault metadata.
	Passphrase string
	WorkFactor crypto.WorkFactor

	SearchDisabled bool
	SyncDisabled   bool

	// JournalPath, when set, persists the sync engine state in a bbolt file.
	JournalPath string

	// SyncInterval > 0 starts a background job calling StartSync.
	SyncInterval time.Duration
}

// OptionsFromConfig maps the process configuration onto vault options,
// reading the key file if one is configured.
func OptionsFromConfig(cfg *config.StructuredConfig) (Options, error) {
	opts := Options{
		DB:             cfg.Storage.DB,
		Passphrase:     cfg.Vault.Passphrase,
		SearchDisabled: cfg.Vault.SearchDisabled,
		SyncDisabled:   cfg.Vault.SyncDisabled,
		JournalPath:    cfg.Storage.Journal.Path,
		SyncInterval:   cfg.Workers.SyncInterval,
		WorkFactor: crypto.WorkFactor{
			Time:      cfg.Crypto.ArgonTime,
			MemoryKiB: cfg.Crypto.ArgonMemoryKiB,
			Threads:   cfg.Crypto.ArgonThreads,
		},
	}

	if cfg.Vault.KeyFile != "" {
		key, err := ReadKeyFile(cfg.Vault.KeyFile)
		if err != nil {
			return Options{}, err
		}
		opts.Key = key
	}
	return opts, nil
}

// ReadKeyFile loads a key stored either as 32 raw bytes or as 64 hex
// characters, surrounding whitespace allowed.
func ReadKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(raw) == crypto.KeySize {
		return raw, nil
	}
	defer crypto.SecureWipe(raw)

	trimmed := bytes.TrimSpace(raw)
	key := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(key, trimmed)
	if err != nil || n != crypto.KeySize {
		crypto.SecureWipe(key)
		return nil, fmt.Errorf("%w: key file must hold %d raw bytes or %d hex characters", crypto.ErrInvalidKey, crypto.KeySize, 2*crypto.KeySize)
	}
	return key, nil
}

// Option customises the collaborators of a [Vault].
type Option func(*Vault)

// WithStorage makes Initialize use s instead of opening SQLite from
// Options.DB. The vault takes ownership and closes s.
func WithStorage(s store.DocumentStorage) Option {
	return func(v *Vault) { v.injected = s }
}

// WithTransport sends every sync batch through t.
func WithTransport(t replica.Transport) Option {
	return func(v *Vault) { v.transport = t }
}

// WithJournal persists the sync engine through j instead of Options.JournalPath.
func WithJournal(j replica.Journal) Option {
	return func(v *Vault) { v.journal = j }
}

// WithStructuredTypes merges documents of the given types field by field when
// a remote edit meets a pending local one, instead of reporting a conflict.
func WithStructuredTypes(types ...string) Option {
	return func(v *Vault) { v.structured = append(v.structured, types...) }
}

// WithMerger replaces the field-level merger used for structured types.
func WithMerger(m replica.StructuredMerger) Option {
	return func(v *Vault) { v.merger = m }
}

// WithKeyChain replaces the default crypto primitives.
func WithKeyChain(kc crypto.KeyChain) Option {
	return func(v *Vault) { v.keyChain = kc }
}

// WithIDGenerator replaces the UUIDv7 document id generator.
func WithIDGenerator(g utils.IDGenerator) Option {
	return func(v *Vault) { v.ids = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}
