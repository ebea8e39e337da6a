// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"sort"
	"time"
)

// SyncStatus is the per-document replication state.
type SyncStatus string

const (
	// SyncStatusLocal marks a document changed locally and not yet synchronized.
	SyncStatusLocal SyncStatus = "local"
	// SyncStatusSyncing marks a document whose change set is in flight.
	SyncStatusSyncing SyncStatus = "syncing"
	// SyncStatusSynced marks a document whose last change was delivered.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusConflict marks a document whose local change beat a remote one
	// and awaits a user-visible decision.
	SyncStatusConflict SyncStatus = "conflict"
	// SyncStatusError marks a document whose last synchronization failed.
	SyncStatusError SyncStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusLocal, SyncStatusSyncing, SyncStatusSynced, SyncStatusConflict, SyncStatusError:
		return true
	}
	return false
}

// Document is the unit of storage. It is created, mutated and removed only
// through the vault; callers must treat returned documents as read-only
// snapshots.
type Document struct {
	// ID is globally unique and immutable.
	ID string `json:"id"`

	// Type is a caller-defined category such as "message" or "contact".
	Type string `json:"type"`

	// Data is the structured payload.
	Data Value `json:"data"`

	Metadata Metadata `json:"metadata"`

	// CreatedAt never changes after creation. Millisecond precision.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is refreshed on every successful write. Millisecond precision.
	UpdatedAt time.Time `json:"updated_at"`

	// Version starts at 1 and grows by exactly one per update.
	Version int64 `json:"version"`
}

// Metadata carries the non-payload attributes of a [Document].
type Metadata struct {
	// Tags is a sorted set without duplicates.
	Tags []string `json:"tags"`

	// SearchableText is optional extra text fed into the search index.
	SearchableText *string `json:"searchable_text,omitempty"`

	// ContentHash is hex(SHA-256(Canonical(Data))).
	ContentHash string `json:"content_hash"`

	SyncStatus SyncStatus `json:"sync_status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// MetadataInput is the caller-supplied part of [Metadata] on create and
// update. Nil fields keep the existing value on update.
type MetadataInput struct {
	Tags           []string
	SearchableText *string
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	if d.Metadata.SearchableText != nil {
		s := *d.Metadata.SearchableText
		cp.Metadata.SearchableText = &s
	}
	if d.Metadata.LastSyncAt != nil {
		t := *d.Metadata.LastSyncAt
		cp.Metadata.LastSyncAt = &t
	}
	return &cp
}

// HasTag reports whether the document carries tag.
func (d *Document) HasTag(tag string) bool {
	i := sort.SearchStrings(d.Metadata.Tags, tag)
	return i < len(d.Metadata.Tags) && d.Metadata.Tags[i] == tag
}

// NormalizeTags returns tags sorted and de-duplicated, dropping empty strings.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Millis truncates t to millisecond precision in UTC, the precision used for
// every stored timestamp.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
