// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// ChangeType is the kind of mutation a [SyncChange] describes.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// SyncChange is a single replicated mutation, queued locally until it is
// synchronized.
type SyncChange struct {
	// ID is the id of the affected document.
	ID   string     `json:"id"`
	Type ChangeType `json:"type"`

	// Document is the full document after the change; nil for deletes.
	Document *Document `json:"document,omitempty"`

	// Timestamp is the logical clock value assigned when the change was queued.
	Timestamp int64 `json:"timestamp"`

	// Hash is the content hash of Document, or empty for deletes.
	Hash string `json:"hash"`

	// ActorID identifies the replica that produced the change; it breaks
	// timestamp ties.
	ActorID string `json:"actor_id"`
}

// CRDTState is a snapshot of a replica's synchronization state.
type CRDTState struct {
	ActorID     string       `json:"actor_id"`
	Clock       int64        `json:"clock"`
	Changes     []SyncChange `json:"changes"`
	LastMergeAt *time.Time   `json:"last_merge_at,omitempty"`
}

// Conflict is a remote change that lost against a pending local change.
type Conflict struct {
	Local  SyncChange `json:"local"`
	Remote SyncChange `json:"remote"`
}
