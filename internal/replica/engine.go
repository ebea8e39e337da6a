// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package replica tracks local changes and reconciles them with remote
// replicas without a central authority.
//
// The engine is transport agnostic: Synchronize hands the pending batch to an
// optional [Transport] and returns it, MergeRemoteChanges takes whatever the
// caller received. Conflicts are decided by Lamport timestamp; equal
// timestamps are ordered by actor id, the lexicographically larger id winning.
package replica

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/crdt"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/models"
)

// Engine is the sync engine of one vault. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	clock   *crdt.LamportClock
	pending []models.SyncChange
	// peers holds the highest timestamp observed per remote actor.
	peers map[string]int64

	status       models.SyncStatus
	syncing      bool
	lastSyncTime *time.Time
	lastMergeAt  *time.Time

	transport Transport
	journal   Journal
	merger    StructuredMerger
	// structured lists the document types merged field by field.
	structured map[string]bool
	// bases holds, per structured document with pending edits, the data
	// last agreed with the other replicas.
	bases map[string]models.Value

	logger *logger.Logger
	now    func() time.Time
}

// Option configures an [Engine].
type Option func(*Engine)

// WithTransport makes Synchronize send every batch before draining it.
func WithTransport(t Transport) Option {
	return func(e *Engine) { e.transport = t }
}

// WithJournal persists the engine state after every mutation.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithMerger replaces the default field-level LWW merger.
func WithMerger(m StructuredMerger) Option {
	return func(e *Engine) { e.merger = m }
}

// WithStructuredTypes opts documents of the given types into field-level
// merging. A remote edit that meets a pending local edit of such a document
// is merged through the [StructuredMerger] instead of being resolved by
// whole-document last-write-wins.
func WithStructuredTypes(types ...string) Option {
	return func(e *Engine) {
		for _, t := range types {
			e.structured[t] = true
		}
	}
}

// WithActorID fixes the actor id instead of generating one. A journal that
// already holds an actor id takes precedence.
func WithActorID(id string) Option {
	return func(e *Engine) { e.clock = crdt.NewLamportClock(id) }
}

// NewEngine builds an engine, restoring state from the journal if one is
// configured and holds any.
func NewEngine(ctx context.Context, log *logger.Logger, opts ...Option) (*Engine, error) {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		peers:      make(map[string]int64),
		status:     models.SyncStatusLocal,
		merger:     LWWMerger{},
		structured: make(map[string]bool),
		bases:      make(map[string]models.Value),
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = crdt.NewLamportClock("")
	}

	if e.journal != nil {
		state, ok, err := e.journal.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load: %w", ErrJournal, err)
		}
		if ok {
			e.restore(state)
			log.Info().
				Str("func", "NewEngine").
				Str("actor", state.ActorID).
				Int("pending", len(state.Pending)).
				Msg("sync state restored from journal")
		} else if err := e.persistLocked(ctx); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) restore(state JournalState) {
	if state.ActorID != "" {
		e.clock = crdt.NewLamportClock(state.ActorID)
	}
	e.clock.Restore(state.Clock)
	e.pending = slices.Clone(state.Pending)
	if state.Peers != nil {
		e.peers = maps.Clone(state.Peers)
	}
	if state.Bases != nil {
		e.bases = maps.Clone(state.Bases)
	}
	e.lastSyncTime = state.LastSyncAt
	e.lastMergeAt = state.LastMergeAt
}

// ActorID returns this replica's identifier.
func (e *Engine) ActorID() string { return e.clock.ActorID() }

// QueueChange stamps change with the next clock value and this actor and
// appends it to the pending list. The stamped change is returned.
func (e *Engine) QueueChange(ctx context.Context, change models.SyncChange) (models.SyncChange, error) {
	if change.ID == "" {
		return models.SyncChange{}, fmt.Errorf("%w: empty document id", ErrInvalidChange)
	}
	switch change.Type {
	case models.ChangeCreate, models.ChangeUpdate, models.ChangeDelete:
	default:
		return models.SyncChange{}, fmt.Errorf("%w: unknown change type %q", ErrInvalidChange, change.Type)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	change.Timestamp = e.clock.Tick()
	change.ActorID = e.clock.ActorID()
	change.Document = change.Document.Clone()
	e.pending = append(e.pending, change)
	e.status = models.SyncStatusLocal

	logger.FromContext(ctx).Debug().
		Str("func", "Engine.QueueChange").
		Str("id", change.ID).
		Str("type", string(change.Type)).
		Int64("ts", change.Timestamp).
		Msg("change queued")

	return change, e.persistLocked(ctx)
}

// Synchronize drains the pending list. With a transport the batch is sent
// first and only drained if the send succeeds; on failure the status becomes
// error and every change stays pending, so calling again is safe.
func (e *Engine) Synchronize(ctx context.Context) ([]models.SyncChange, error) {
	log := logger.FromContext(ctx)

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.syncing = true
	e.status = models.SyncStatusSyncing
	batch := cloneChanges(e.pending)
	e.mu.Unlock()

	var sendErr error
	if e.transport != nil && len(batch) > 0 {
		sendErr = e.transport.Send(ctx, batch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncing = false

	if sendErr != nil {
		e.status = models.SyncStatusError
		log.Err(sendErr).
			Str("func", "Engine.Synchronize").
			Int("pending", len(e.pending)).
			Msg("failed to send changes, keeping them pending")
		return nil, fmt.Errorf("%w: %w", ErrSyncFailed, sendErr)
	}

	// Changes queued while the batch was in flight stay pending.
	sent := make(map[changeKey]struct{}, len(batch))
	for _, ch := range batch {
		sent[keyOf(ch)] = struct{}{}
	}
	e.pending = slices.DeleteFunc(e.pending, func(ch models.SyncChange) bool {
		_, ok := sent[keyOf(ch)]
		return ok
	})
	e.dropSettledBasesLocked()

	now := e.now().UTC()
	e.lastSyncTime = &now
	e.status = models.SyncStatusSynced
	if len(e.pending) > 0 {
		e.status = models.SyncStatusLocal
	}

	log.Info().
		Str("func", "Engine.Synchronize").
		Int("sent", len(batch)).
		Msg("changes synchronized")

	if err := e.persistLocked(ctx); err != nil {
		return batch, err
	}
	return batch, nil
}

// MergeRemoteChanges reconciles remote changes with the pending list.
//
// A remote change conflicts only with a pending local change for the same id
// whose hash differs. The newer change wins: a winning remote change is
// applied and the local pending entries for that id are discarded; a losing
// one is returned as a conflict and the status becomes conflict. Remote
// changes without a conflict are applied directly. Changes this actor
// produced itself are ignored. The clock advances to the largest timestamp
// seen.
//
// For types opted in with [WithStructuredTypes] a remote edit meeting a
// pending local edit is never a conflict: both are merged field by field,
// applied, and the merged document replaces the local pending entries.
//
// Processing stops at the first apply error; changes before it stay applied.
func (e *Engine) MergeRemoteChanges(ctx context.Context, remote []models.SyncChange, apply ApplyFunc) ([]models.Conflict, error) {
	log := logger.FromContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	self := e.clock.ActorID()
	conflicts := make([]models.Conflict, 0)

	for _, rc := range remote {
		if rc.ActorID == self {
			continue
		}
		e.clock.Observe(rc.Timestamp)
		if rc.Timestamp > e.peers[rc.ActorID] {
			e.peers[rc.ActorID] = rc.Timestamp
		}

		local, hasLocal := e.latestPendingLocked(rc.ID)
		if hasLocal && e.mergesStructured(local, rc) {
			if err := e.applyMergedLocked(ctx, local, rc, apply); err != nil {
				return conflicts, err
			}
			continue
		}
		if hasLocal && local.Hash != rc.Hash &&
			crdt.Compare(local.Timestamp, local.ActorID, rc.Timestamp, rc.ActorID) > 0 {
			conflicts = append(conflicts, models.Conflict{Local: local, Remote: rc})
			log.Warn().
				Str("func", "Engine.MergeRemoteChanges").
				Str("id", rc.ID).
				Int64("local_ts", local.Timestamp).
				Int64("remote_ts", rc.Timestamp).
				Msg("local change wins, remote change reported as conflict")
			continue
		}

		if apply != nil {
			if _, err := apply(ctx, rc, false); err != nil {
				return conflicts, e.applyFailedLocked(ctx, rc, err)
			}
		}

		if hasLocal && local.Hash != rc.Hash {
			e.pending = slices.DeleteFunc(e.pending, func(ch models.SyncChange) bool { return ch.ID == rc.ID })
			delete(e.bases, rc.ID)
		}
	}

	now := e.now().UTC()
	e.lastMergeAt = &now
	if len(conflicts) > 0 {
		e.status = models.SyncStatusConflict
	}

	return conflicts, e.persistLocked(ctx)
}

// mergesStructured reports whether local and remote are two edits of an
// opted-in structured document that have to be merged field by field.
func (e *Engine) mergesStructured(local, remote models.SyncChange) bool {
	if local.Hash == remote.Hash || local.Document == nil || remote.Document == nil {
		return false
	}
	if local.Type == models.ChangeDelete || remote.Type == models.ChangeDelete {
		return false
	}
	return e.structured[remote.Document.Type] && local.Document.Type == remote.Document.Type
}

// applyMergedLocked writes the field-level merge of local and remote and
// replaces the pending local entries for the document with one update
// carrying the merged state.
func (e *Engine) applyMergedLocked(ctx context.Context, local, remote models.SyncChange, apply ApplyFunc) error {
	var lm, rm *crdt.LWWMap
	if base, ok := e.bases[remote.ID]; ok {
		// Only the fields each side changed since base carry its stamp.
		lm = e.merger.Create(base, 0, "")
		lm.Update(local.Document.Data, local.Timestamp, local.ActorID)
		rm = e.merger.Create(base, 0, "")
		rm.Update(remote.Document.Data, remote.Timestamp, remote.ActorID)
	} else {
		lm = e.merger.Create(local.Document.Data, local.Timestamp, local.ActorID)
		rm = e.merger.Create(remote.Document.Data, remote.Timestamp, remote.ActorID)
	}
	merged := e.merger.Merge(lm, rm)

	base := remote.Document
	if crdt.Compare(local.Timestamp, local.ActorID, remote.Timestamp, remote.ActorID) > 0 {
		base = local.Document
	}
	doc := base.Clone()
	doc.Data = merged.Value()
	doc.Version = max(local.Document.Version, remote.Document.Version) + 1

	change := remote
	change.Type = models.ChangeUpdate
	change.Document = doc
	change.Hash = ""

	written := doc
	if apply != nil {
		out, err := apply(ctx, change, true)
		if err != nil {
			return e.applyFailedLocked(ctx, remote, err)
		}
		if out != nil {
			written = out
		}
	}

	e.pending = slices.DeleteFunc(e.pending, func(ch models.SyncChange) bool { return ch.ID == remote.ID })
	e.pending = append(e.pending, models.SyncChange{
		ID:        remote.ID,
		Type:      models.ChangeUpdate,
		Document:  written.Clone(),
		Timestamp: e.clock.Tick(),
		Hash:      written.Metadata.ContentHash,
		ActorID:   e.clock.ActorID(),
	})
	e.bases[remote.ID] = remote.Document.Data
	e.status = models.SyncStatusLocal

	logger.FromContext(ctx).Info().
		Str("func", "Engine.MergeRemoteChanges").
		Str("id", remote.ID).
		Int64("local_ts", local.Timestamp).
		Int64("remote_ts", remote.Timestamp).
		Msg("structured document merged field by field")
	return nil
}

// applyFailedLocked persists what was merged so far and wraps the apply error.
func (e *Engine) applyFailedLocked(ctx context.Context, rc models.SyncChange, err error) error {
	log := logger.FromContext(ctx)
	log.Err(err).Str("func", "Engine.MergeRemoteChanges").Str("id", rc.ID).Msg("failed to apply remote change")
	if perr := e.persistLocked(ctx); perr != nil {
		log.Err(perr).Str("func", "Engine.MergeRemoteChanges").Msg("failed to persist sync state")
	}
	return fmt.Errorf("apply remote change %s: %w", rc.ID, err)
}

// RecordBase remembers data as the last agreed state of a structured document
// before its first pending local edit. It is a no-op while edits for id are
// already pending.
func (e *Engine) RecordBase(id string, data models.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, pending := e.latestPendingLocked(id); pending {
		return
	}
	e.bases[id] = data
}

// IsStructured reports whether docType was opted in with [WithStructuredTypes].
func (e *Engine) IsStructured(docType string) bool {
	return e.structured[docType]
}

func (e *Engine) dropSettledBasesLocked() {
	for id := range e.bases {
		if _, pending := e.latestPendingLocked(id); !pending {
			delete(e.bases, id)
		}
	}
}

func (e *Engine) latestPendingLocked(id string) (models.SyncChange, bool) {
	for i := len(e.pending) - 1; i >= 0; i-- {
		if e.pending[i].ID == id {
			return e.pending[i], true
		}
	}
	return models.SyncChange{}, false
}

// ResetSyncState clears pending changes, the clock and per-actor state. The
// actor id is kept.
func (e *Engine) ResetSyncState(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = nil
	e.peers = make(map[string]int64)
	e.bases = make(map[string]models.Value)
	e.clock.Reset("")
	e.status = models.SyncStatusLocal
	e.lastSyncTime = nil
	e.lastMergeAt = nil

	logger.FromContext(ctx).Info().Str("func", "Engine.ResetSyncState").Msg("sync state reset")
	return e.persistLocked(ctx)
}

// GetPendingChangesCount returns the number of changes waiting to be synced.
func (e *Engine) GetPendingChangesCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// PendingChanges returns a copy of the pending list, oldest first.
func (e *Engine) PendingChanges() []models.SyncChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneChanges(e.pending)
}

// Status returns the overall sync status.
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSyncTime returns when Synchronize last succeeded, or nil.
func (e *Engine) LastSyncTime() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTime(e.lastSyncTime)
}

// Stats summarises the engine for vault statistics.
func (e *Engine) Stats() models.SyncStatusStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.SyncStatusStats{
		Status:       e.status,
		Pending:      len(e.pending),
		LastSyncTime: copyTime(e.lastSyncTime),
	}
}

// State returns a snapshot of the engine.
func (e *Engine) State() models.CRDTState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CRDTState{
		ActorID:     e.clock.ActorID(),
		Clock:       e.clock.Now(),
		Changes:     cloneChanges(e.pending),
		LastMergeAt: copyTime(e.lastMergeAt),
	}
}

// Close releases the journal, if any.
func (e *Engine) Close() error {
	if e.journal == nil {
		return nil
	}
	return e.journal.Close()
}

func (e *Engine) persistLocked(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	state := JournalState{
		ActorID:     e.clock.ActorID(),
		Clock:       e.clock.Now(),
		Pending:     cloneChanges(e.pending),
		Peers:       maps.Clone(e.peers),
		Bases:       maps.Clone(e.bases),
		LastSyncAt:  copyTime(e.lastSyncTime),
		LastMergeAt: copyTime(e.lastMergeAt),
	}
	if err := e.journal.Save(ctx, state); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "Engine.persist").Msg("failed to save sync journal")
		return fmt.Errorf("%w: save: %w", ErrJournal, err)
	}
	return nil
}

type changeKey struct {
	id      string
	ts      int64
	actorID string
}

func keyOf(ch models.SyncChange) changeKey {
	return changeKey{id: ch.ID, ts: ch.Timestamp, actorID: ch.ActorID}
}

func cloneChanges(in []models.SyncChange) []models.SyncChange {
	out := make([]models.SyncChange, len(in))
	for i, ch := range in {
		ch.Document = ch.Document.Clone()
		out[i] = ch
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
