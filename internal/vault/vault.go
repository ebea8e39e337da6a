// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package vault ties the encrypted store, the search index and the sync
// engine together behind one document API.
//
// A vault moves through three states: created by [New], usable after
// [Vault.Initialize], and finished after [Vault.Close]. Every document is
// written to storage first and only then indexed and queued for sync; a failed
// storage write leaves the index and the queue untouched. Between a storage
// write and the matching index update a concurrent search can observe the old
// entry. [Vault.RebuildIndex] brings the index back in line with storage.
package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/journal"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/internal/search"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/internal/utils"
	"github.com/MKhiriev/go-doc-vault/internal/validators"
	"github.com/MKhiriev/go-doc-vault/models"
)

// Metadata keys kept in the store's side table.
const (
	metaKDFSalt      = "kdf_salt"
	metaKeyCheck     = "key_check"
	metaActorID      = "actor_id"
	metaLastBackupAt = "last_backup_at"
)

// keyCheckPlaintext is sealed with the vault key on first use so a wrong key
// is detected at Initialize rather than on the first read.
var keyCheckPlaintext = []byte("go-doc-vault key check v1")

type state int

const (
	stateNew state = iota
	stateOpen
	stateClosed
)

// Vault is safe for concurrent use. Concurrent updates of the same document
// race; the last write to reach storage wins.
type Vault struct {
	opts   Options
	logger *logger.Logger

	keyChain  crypto.KeyChain
	validator validators.Validator
	ids       utils.IDGenerator
	now       func() time.Time
	injected  store.DocumentStorage
	transport replica.Transport
	journal   replica.Journal

	structured []string
	merger     replica.StructuredMerger

	mu      sync.RWMutex
	state   state
	key     *crypto.Key
	storage store.DocumentStorage
	index   *search.Index
	engine  *replica.Engine
	job     *replica.SyncJob

	subMu       sync.RWMutex
	subscribers map[int]func(models.Event)
	nextSubID   int
}

// New prepares a vault. Nothing is opened until Initialize.
func New(opts Options, log *logger.Logger, extra ...Option) *Vault {
	if log == nil {
		log = logger.Nop()
	}
	v := &Vault{
		opts:        opts,
		logger:      log,
		keyChain:    crypto.NewKeyChain(),
		validator:   validators.NewDocumentValidator(),
		ids:         utils.NewUUIDGenerator(),
		now:         time.Now,
		subscribers: make(map[int]func(models.Event)),
	}
	for _, opt := range extra {
		opt(v)
	}
	return v
}

// Initialize opens storage, unlocks it with the configured key or passphrase,
// wires search and sync and rebuilds the index from storage. Calling it on an
// open vault is a no-op.
func (v *Vault) Initialize(ctx context.Context) error {
	v.mu.Lock()
	switch v.state {
	case stateOpen:
		v.mu.Unlock()
		return nil
	case stateClosed:
		v.mu.Unlock()
		return fmt.Errorf("%w: vault is closed", ErrNotInitialized)
	}

	ctx = v.logger.WithContext(ctx)
	err := v.open(ctx)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	v.state = stateOpen
	job := v.job
	searchOn, syncOn := v.index != nil, v.engine != nil
	v.mu.Unlock()

	if job != nil {
		job.Start(context.WithoutCancel(ctx), v.opts.SyncInterval)
	}

	v.logger.Info().
		Str("func", "Vault.Initialize").
		Bool("search", searchOn).
		Bool("sync", syncOn).
		Msg("vault initialized")
	v.emit(models.Event{Name: models.EventVaultInitialized})
	return nil
}

// open runs with v.mu held. On failure everything opened so far is released.
func (v *Vault) open(ctx context.Context) (err error) {
	if (len(v.opts.Key) == 0) == (v.opts.Passphrase == "") {
		return fmt.Errorf("%w: exactly one of key and passphrase is required", ErrConfiguration)
	}

	var cleanup []func()
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				cleanup[i]()
			}
		}
	}()

	var (
		s   store.DocumentStorage
		key *crypto.Key
	)
	if v.injected != nil {
		s = v.injected
		cleanup = append(cleanup, func() { _ = s.Close() })
		if key, err = v.unlock(ctx, s); err != nil {
			return err
		}
	} else {
		// the key has to exist before the document storage does
		s, key, err = store.OpenDocumentStorage(ctx, v.opts.DB, v.keyChain, func(ctx context.Context, meta store.MetadataRepository) (*crypto.Key, error) {
			return v.unlock(ctx, metadataRepository{meta})
		}, v.logger)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = s.Close() })
	}
	cleanup = append(cleanup, key.Wipe)

	var index *search.Index
	if !v.opts.SearchDisabled {
		index = search.NewIndex(v.logger)
	}

	var engine *replica.Engine
	if !v.opts.SyncDisabled {
		engine, err = v.openEngine(ctx, s)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = engine.Close() })
	}

	if index != nil {
		if _, err := rebuild(ctx, s, index); err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
	}

	v.storage = s
	v.key = key
	v.index = index
	v.engine = engine
	if engine != nil && v.opts.SyncInterval > 0 {
		v.job = replica.NewSyncJob(replica.SyncRunnerFunc(func(ctx context.Context) error {
			_, err := v.StartSync(ctx)
			return err
		}), v.logger)
	}
	return nil
}

// metadataStore is the side table the unlock step needs before the document
// storage exists.
type metadataStore interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadata(ctx context.Context, key, value string) error
}

type metadataRepository struct {
	store.MetadataRepository
}

func (m metadataRepository) GetMetadata(ctx context.Context, key string) (string, error) {
	return m.Get(ctx, key)
}

func (m metadataRepository) SetMetadata(ctx context.Context, key, value string) error {
	return m.Set(ctx, key, value)
}

// unlock produces the vault key and checks it against the stored key check
// value, writing salt and check value on first use.
func (v *Vault) unlock(ctx context.Context, s metadataStore) (*crypto.Key, error) {
	var (
		key *crypto.Key
		err error
	)
	if len(v.opts.Key) > 0 {
		key, err = crypto.NewKey(v.opts.Key)
		if err != nil {
			return nil, err
		}
	} else {
		salt, err := loadOrCreateSalt(ctx, s, v.keyChain)
		if err != nil {
			return nil, err
		}
		key, err = v.keyChain.DeriveKey(v.opts.Passphrase, salt, v.opts.WorkFactor)
		if err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
	}

	if err := verifyKey(ctx, s, v.keyChain, key); err != nil {
		key.Wipe()
		return nil, err
	}
	return key, nil
}

func loadOrCreateSalt(ctx context.Context, s metadataStore, kc crypto.KeyChain) ([]byte, error) {
	stored, err := s.GetMetadata(ctx, metaKDFSalt)
	switch {
	case err == nil:
		salt, err := hex.DecodeString(stored)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed stored salt", store.ErrIntegrity)
		}
		return salt, nil
	case errors.Is(err, store.ErrMetadataNotFound):
		salt, err := kc.GenerateSalt()
		if err != nil {
			return nil, err
		}
		if err := s.SetMetadata(ctx, metaKDFSalt, hex.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
		return salt, nil
	default:
		return nil, err
	}
}

// verifyKey opens the stored key check value, or seals a new one when the
// store has none.
func verifyKey(ctx context.Context, s metadataStore, kc crypto.KeyChain, key *crypto.Key) error {
	stored, err := s.GetMetadata(ctx, metaKeyCheck)
	if errors.Is(err, store.ErrMetadataNotFound) {
		ct, nonce, err := kc.Encrypt(keyCheckPlaintext, key)
		if err != nil {
			return err
		}
		return s.SetMetadata(ctx, metaKeyCheck, hex.EncodeToString(nonce)+":"+hex.EncodeToString(ct))
	}
	if err != nil {
		return err
	}

	nonceHex, ctHex, ok := strings.Cut(stored, ":")
	nonce, nerr := hex.DecodeString(nonceHex)
	ct, cerr := hex.DecodeString(ctHex)
	if !ok || nerr != nil || cerr != nil {
		return fmt.Errorf("%w: malformed key check value", store.ErrIntegrity)
	}
	plain, err := kc.Decrypt(ct, nonce, key)
	if err != nil || !crypto.ConstantTimeEqual(plain, keyCheckPlaintext) {
		return ErrKeyMismatch
	}
	return nil
}

func (v *Vault) openEngine(ctx context.Context, s store.DocumentStorage) (*replica.Engine, error) {
	actorID, err := s.GetMetadata(ctx, metaActorID)
	if errors.Is(err, store.ErrMetadataNotFound) {
		actorID = v.ids.Generate()
		if err := s.SetMetadata(ctx, metaActorID, actorID); err != nil {
			return nil, fmt.Errorf("store actor id: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	opts := []replica.Option{replica.WithActorID(actorID)}
	if v.transport != nil {
		opts = append(opts, replica.WithTransport(v.transport))
	}
	if len(v.structured) > 0 {
		opts = append(opts, replica.WithStructuredTypes(v.structured...))
	}
	if v.merger != nil {
		opts = append(opts, replica.WithMerger(v.merger))
	}
	j := v.journal
	if j == nil && v.opts.JournalPath != "" {
		bj, err := journal.Open(ctx, v.opts.JournalPath)
		if err != nil {
			return nil, err
		}
		j = bj
	}
	if j != nil {
		opts = append(opts, replica.WithJournal(j))
	}

	engine, err := replica.NewEngine(ctx, v.logger, opts...)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return nil, err
	}
	return engine, nil
}

// Close stops background sync, releases storage and the journal and wipes the
// key. A closed vault cannot be reopened. Closing twice is a no-op.
func (v *Vault) Close() error {
	v.mu.RLock()
	job := v.job
	v.mu.RUnlock()
	if job != nil {
		job.Stop()
	}

	v.mu.Lock()
	if v.state != stateOpen {
		v.state = stateClosed
		v.mu.Unlock()
		return nil
	}

	var errs []error
	if v.engine != nil {
		errs = append(errs, v.engine.Close())
	}
	errs = append(errs, v.storage.Close())
	v.key.Wipe()
	if v.index != nil {
		v.index.Clear()
	}
	v.storage, v.key, v.index, v.engine, v.job = nil, nil, nil, nil, nil
	v.state = stateClosed
	v.mu.Unlock()

	v.logger.Info().Str("func", "Vault.Close").Msg("vault closed")
	v.emit(models.Event{Name: models.EventVaultClosed})
	return errors.Join(errs...)
}

// acquire read-locks the vault for one operation and attaches the logger to
// ctx. The returned release must be called exactly once.
func (v *Vault) acquire(ctx context.Context) (context.Context, func(), error) {
	v.mu.RLock()
	if v.state != stateOpen {
		v.mu.RUnlock()
		return ctx, nil, ErrNotInitialized
	}
	return v.logger.WithContext(ctx), v.mu.RUnlock, nil
}

// Subscribe registers fn for every lifecycle event and returns a function
// removing it. Handlers run synchronously on the goroutine that triggered the
// event, after the vault has released its locks.
func (v *Vault) Subscribe(fn func(models.Event)) (unsubscribe func()) {
	v.subMu.Lock()
	id := v.nextSubID
	v.nextSubID++
	v.subscribers[id] = fn
	v.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.subMu.Lock()
			delete(v.subscribers, id)
			v.subMu.Unlock()
		})
	}
}

func (v *Vault) emit(ev models.Event) {
	v.subMu.RLock()
	handlers := make([]func(models.Event), 0, len(v.subscribers))
	// registration order
	for _, id := range slices.Sorted(maps.Keys(v.subscribers)) {
		handlers = append(handlers, v.subscribers[id])
	}
	v.subMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
