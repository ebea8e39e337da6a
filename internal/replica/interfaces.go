// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package replica

//go:generate mockgen -source=interfaces.go -destination=../mock/replica_mock.go -package=mock

import (
	"context"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/crdt"
	"github.com/MKhiriev/go-doc-vault/models"
)

// Transport delivers a batch of local changes to remote replicas. The
// engine treats any error as a failed round and keeps the batch pending.
type Transport interface {
	Send(ctx context.Context, changes []models.SyncChange) error
}

// ApplyFunc applies a winning remote change to local state and returns the
// document as written, or nil for a delete. It is called by
// [Engine.MergeRemoteChanges] for every change that is not a conflict, with
// the engine locked, so it must not call back into the engine.
//
// merged is set when the change carries the field-level merge of a local and
// a remote edit of a structured type. Such a write is local state: the engine
// queues the returned document for the other replicas.
type ApplyFunc func(ctx context.Context, change models.SyncChange, merged bool) (*models.Document, error)

// JournalState is the part of the engine that survives a restart when a
// [Journal] is configured.
type JournalState struct {
	ActorID     string
	Clock       int64
	Pending     []models.SyncChange
	Peers       map[string]int64
	Bases       map[string]models.Value
	LastSyncAt  *time.Time
	LastMergeAt *time.Time
}

// Journal persists engine state. Save is called after every mutation with
// the complete state; Load returns ok=false when nothing was saved yet.
type Journal interface {
	Load(ctx context.Context) (state JournalState, ok bool, err error)
	Save(ctx context.Context, state JournalState) error
	Close() error
}

// StructuredMerger performs field-level merges for documents that opt out of
// whole-document last-write-wins.
type StructuredMerger interface {
	// Create builds a structured document from data, every field stamped
	// (ts, actorID).
	Create(data models.Value, ts int64, actorID string) *crdt.LWWMap

	// Merge combines two replicas of the same document.
	Merge(local, remote *crdt.LWWMap) *crdt.LWWMap

	// ChangesSince lists the field writes newer than since.
	ChangesSince(doc *crdt.LWWMap, since int64) []crdt.FieldChange

	// Apply returns doc with changes merged in.
	Apply(doc *crdt.LWWMap, changes []crdt.FieldChange) *crdt.LWWMap
}

// SyncRunner is driven periodically by [SyncJob].
type SyncRunner interface {
	RunSync(ctx context.Context) error
}

// SyncRunnerFunc adapts a plain function to [SyncRunner].
type SyncRunnerFunc func(ctx context.Context) error

// RunSync implements [SyncRunner].
func (f SyncRunnerFunc) RunSync(ctx context.Context) error { return f(ctx) }
