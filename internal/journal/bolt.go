// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package journal persists the sync engine state in a bbolt file so pending
// changes survive a restart.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/models"
)

var (
	bucketMeta    = []byte("meta")
	bucketPending = []byte("pending")

	keyActorID     = []byte("actor_id")
	keyClock       = []byte("clock")
	keyPeers       = []byte("peers")
	keyBases       = []byte("bases")
	keyLastSyncAt  = []byte("last_sync_at")
	keyLastMergeAt = []byte("last_merge_at")
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("journal is closed")

// BoltJournal implements [replica.Journal] on top of bbolt. The meta bucket
// holds the scalar state, the pending bucket one JSON change per key in queue
// order.
type BoltJournal struct {
	db *bbolt.DB
}

var _ replica.Journal = (*BoltJournal)(nil)

// Open opens or creates the journal file at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string) (*BoltJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketPending} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltJournal{db: db}, nil
}

// Load implements [replica.Journal]. ok is false until the first Save.
func (j *BoltJournal) Load(ctx context.Context) (replica.JournalState, bool, error) {
	if j.db == nil {
		return replica.JournalState{}, false, ErrClosed
	}

	var (
		state replica.JournalState
		ok    bool
	)
	err := j.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		actor := meta.Get(keyActorID)
		if actor == nil {
			return nil
		}
		ok = true
		state.ActorID = string(actor)

		if raw := meta.Get(keyClock); len(raw) == 8 {
			state.Clock = int64(binary.BigEndian.Uint64(raw))
		}
		if raw := meta.Get(keyPeers); raw != nil {
			if err := json.Unmarshal(raw, &state.Peers); err != nil {
				return fmt.Errorf("failed to unmarshal peers: %w", err)
			}
		}
		if raw := meta.Get(keyBases); raw != nil {
			if err := json.Unmarshal(raw, &state.Bases); err != nil {
				return fmt.Errorf("failed to unmarshal merge bases: %w", err)
			}
		}
		var err error
		if state.LastSyncAt, err = getTime(meta, keyLastSyncAt); err != nil {
			return err
		}
		if state.LastMergeAt, err = getTime(meta, keyLastMergeAt); err != nil {
			return err
		}

		state.Pending = make([]models.SyncChange, 0)
		return tx.Bucket(bucketPending).ForEach(func(_, v []byte) error {
			var ch models.SyncChange
			if err := json.Unmarshal(v, &ch); err != nil {
				return fmt.Errorf("failed to unmarshal pending change: %w", err)
			}
			state.Pending = append(state.Pending, ch)
			return nil
		})
	})
	if err != nil {
		return replica.JournalState{}, false, err
	}
	return state, ok, nil
}

// Save implements [replica.Journal]. The whole state is replaced in a single
// transaction.
func (j *BoltJournal) Save(ctx context.Context, state replica.JournalState) error {
	if j.db == nil {
		return ErrClosed
	}

	peers, err := json.Marshal(state.Peers)
	if err != nil {
		return fmt.Errorf("failed to marshal peers: %w", err)
	}
	bases, err := json.Marshal(state.Bases)
	if err != nil {
		return fmt.Errorf("failed to marshal merge bases: %w", err)
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyActorID, []byte(state.ActorID)); err != nil {
			return err
		}
		if err := meta.Put(keyClock, itob(uint64(state.Clock))); err != nil {
			return err
		}
		if err := meta.Put(keyPeers, peers); err != nil {
			return err
		}
		if err := meta.Put(keyBases, bases); err != nil {
			return err
		}
		if err := putTime(meta, keyLastSyncAt, state.LastSyncAt); err != nil {
			return err
		}
		if err := putTime(meta, keyLastMergeAt, state.LastMergeAt); err != nil {
			return err
		}

		if err := tx.DeleteBucket(bucketPending); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to clear pending changes: %w", err)
		}
		pending, err := tx.CreateBucket(bucketPending)
		if err != nil {
			return fmt.Errorf("failed to create pending bucket: %w", err)
		}
		for i, ch := range state.Pending {
			data, err := json.Marshal(ch)
			if err != nil {
				return fmt.Errorf("failed to marshal pending change %s: %w", ch.ID, err)
			}
			if err := pending.Put(itob(uint64(i)), data); err != nil {
				return fmt.Errorf("failed to save pending change %s: %w", ch.ID, err)
			}
		}
		return nil
	})
}

// Close implements [replica.Journal].
func (j *BoltJournal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// itob encodes n big-endian so bbolt's byte ordering matches queue order.
func itob(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func putTime(b *bbolt.Bucket, key []byte, t *time.Time) error {
	if t == nil {
		return b.Delete(key)
	}
	return b.Put(key, itob(uint64(t.UnixNano())))
}

func getTime(b *bbolt.Bucket, key []byte) (*time.Time, error) {
	raw := b.Get(key)
	if raw == nil {
		return nil, nil
	}
	if len(raw) != 8 {
		return nil, fmt.Errorf("malformed %s entry", key)
	}
	t := time.Unix(0, int64(binary.BigEndian.Uint64(raw))).UTC()
	return &t, nil
}
