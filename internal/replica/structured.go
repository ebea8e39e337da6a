// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package replica

import (
	"github.com/MKhiriev/go-doc-vault/internal/crdt"
	"github.com/MKhiriev/go-doc-vault/models"
)

// LWWMerger is the default [StructuredMerger]: one last-write-wins register
// per object path.
type LWWMerger struct{}

// Create implements [StructuredMerger].
func (LWWMerger) Create(data models.Value, ts int64, actorID string) *crdt.LWWMap {
	return crdt.FromValue(data, ts, actorID)
}

// Merge implements [StructuredMerger].
func (LWWMerger) Merge(local, remote *crdt.LWWMap) *crdt.LWWMap {
	if local == nil {
		local = crdt.NewLWWMap()
	}
	return local.Merge(remote)
}

// ChangesSince implements [StructuredMerger].
func (LWWMerger) ChangesSince(doc *crdt.LWWMap, since int64) []crdt.FieldChange {
	if doc == nil {
		return []crdt.FieldChange{}
	}
	return doc.ChangesSince(since)
}

// Apply implements [StructuredMerger].
func (LWWMerger) Apply(doc *crdt.LWWMap, changes []crdt.FieldChange) *crdt.LWWMap {
	out := crdt.NewLWWMap()
	if doc != nil {
		out = doc.Clone()
	}
	out.ApplyAll(changes)
	return out
}

// CreateStructuredDoc starts a structured document from data, stamped with
// the next clock value.
func (e *Engine) CreateStructuredDoc(data models.Value) *crdt.LWWMap {
	return e.merger.Create(data, e.clock.Tick(), e.clock.ActorID())
}

// UpdateStructuredDoc records the field writes turning doc into next, stamped
// with the next clock value, and returns the updated document with the
// changes.
func (e *Engine) UpdateStructuredDoc(doc *crdt.LWWMap, next models.Value) (*crdt.LWWMap, []crdt.FieldChange) {
	out := crdt.NewLWWMap()
	if doc != nil {
		out = doc.Clone()
	}
	changes := out.Update(next, e.clock.Tick(), e.clock.ActorID())
	return out, changes
}

// MergeStructuredDocs merges two replicas of a structured document and
// advances the clock past both.
func (e *Engine) MergeStructuredDocs(local, remote *crdt.LWWMap) *crdt.LWWMap {
	merged := e.merger.Merge(local, remote)
	e.clock.Observe(merged.Clock())
	return merged
}

// GetChangesSince lists the field writes of doc newer than since.
func (e *Engine) GetChangesSince(doc *crdt.LWWMap, since int64) []crdt.FieldChange {
	return e.merger.ChangesSince(doc, since)
}

// ApplyChanges merges remote field writes into doc and advances the clock.
func (e *Engine) ApplyChanges(doc *crdt.LWWMap, changes []crdt.FieldChange) *crdt.LWWMap {
	for _, ch := range changes {
		e.clock.Observe(ch.Timestamp)
	}
	return e.merger.Apply(doc, changes)
}
