// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

import (
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/MKhiriev/go-doc-vault/models"
)

// FieldChange is one register write: a value (or a tombstone) at a path of
// nested object keys. An empty path addresses the whole value.
type FieldChange struct {
	Path      []string     `json:"path"`
	Value     models.Value `json:"value"`
	Deleted   bool         `json:"deleted,omitempty"`
	Timestamp int64        `json:"timestamp"`
	ActorID   string       `json:"actorId"`
}

func (c FieldChange) newerThan(other FieldChange) bool {
	return Compare(c.Timestamp, c.ActorID, other.Timestamp, other.ActorID) > 0
}

// LWWMap is a map of last-write-wins registers keyed by object path.
//
// Merging takes the newest register per path, so it is commutative,
// associative and idempotent. Writes to overlapping paths (say "a" and
// "a.b") are resolved when the value is materialised: registers are applied
// oldest first, so the newest write decides the shape.
//
// An LWWMap is not safe for concurrent use.
type LWWMap struct {
	fields map[string]FieldChange
}

// NewLWWMap returns an empty map.
func NewLWWMap() *LWWMap {
	return &LWWMap{fields: make(map[string]FieldChange)}
}

// FromValue splits v into one register per leaf, all stamped (ts, actorID).
// Objects are descended into; every other kind, arrays included, is a leaf.
func FromValue(v models.Value, ts int64, actorID string) *LWWMap {
	m := NewLWWMap()
	for _, leaf := range leaves(v, nil) {
		m.put(FieldChange{Path: leaf.path, Value: leaf.value, Timestamp: ts, ActorID: actorID})
	}
	return m
}

// Apply merges a single change and reports whether it won.
func (m *LWWMap) Apply(ch FieldChange) bool {
	key := pathKey(ch.Path)
	if cur, ok := m.fields[key]; ok && !ch.newerThan(cur) {
		return false
	}
	m.put(ch)
	return true
}

// ApplyAll merges every change and returns how many won.
func (m *LWWMap) ApplyAll(changes []FieldChange) int {
	n := 0
	for _, ch := range changes {
		if m.Apply(ch) {
			n++
		}
	}
	return n
}

// Set writes v at path. Stale stamps lose as with any other change.
func (m *LWWMap) Set(path []string, v models.Value, ts int64, actorID string) bool {
	return m.Apply(FieldChange{Path: path, Value: v, Timestamp: ts, ActorID: actorID})
}

// Delete writes a tombstone at path.
func (m *LWWMap) Delete(path []string, ts int64, actorID string) bool {
	return m.Apply(FieldChange{Path: path, Deleted: true, Timestamp: ts, ActorID: actorID})
}

// Update records the difference between the materialised value and next as
// new changes stamped (ts, actorID), applies them and returns them. Unchanged
// leaves produce no change.
func (m *LWWMap) Update(next models.Value, ts int64, actorID string) []FieldChange {
	current := make(map[string]models.Value)
	for _, leaf := range leaves(m.Value(), nil) {
		current[pathKey(leaf.path)] = leaf.value
	}

	var changes []FieldChange
	nextLeaves := leaves(next, nil)
	seen := make(map[string]struct{}, len(nextLeaves))
	for _, leaf := range nextLeaves {
		key := pathKey(leaf.path)
		seen[key] = struct{}{}
		if old, ok := current[key]; ok && old.Equal(leaf.value) {
			continue
		}
		changes = append(changes, FieldChange{Path: leaf.path, Value: leaf.value, Timestamp: ts, ActorID: actorID})
	}
	for key := range current {
		if _, ok := seen[key]; ok {
			continue
		}
		path := parsePathKey(key)
		// A leaf that became an object is replaced by the writes below it.
		if extendsPath(nextLeaves, path) {
			continue
		}
		changes = append(changes, FieldChange{Path: path, Deleted: true, Timestamp: ts, ActorID: actorID})
	}

	sortChanges(changes)
	m.ApplyAll(changes)
	return changes
}

// Merge returns a new map holding the newest register of m and other per path.
func (m *LWWMap) Merge(other *LWWMap) *LWWMap {
	out := m.Clone()
	if other != nil {
		for _, ch := range other.fields {
			out.Apply(ch)
		}
	}
	return out
}

// ChangesSince returns the registers written after ts, oldest first.
func (m *LWWMap) ChangesSince(ts int64) []FieldChange {
	out := make([]FieldChange, 0)
	for _, ch := range m.fields {
		if ch.Timestamp > ts {
			out = append(out, ch)
		}
	}
	sortChanges(out)
	return out
}

// Changes returns every register, oldest first.
func (m *LWWMap) Changes() []FieldChange {
	return m.ChangesSince(math.MinInt64)
}

// Clock returns the highest timestamp of any register.
func (m *LWWMap) Clock() int64 {
	var ts int64
	for _, ch := range m.fields {
		ts = max(ts, ch.Timestamp)
	}
	return ts
}

// Len returns the number of registers, tombstones included.
func (m *LWWMap) Len() int { return len(m.fields) }

// Clone returns an independent copy.
func (m *LWWMap) Clone() *LWWMap {
	out := &LWWMap{fields: make(map[string]FieldChange, len(m.fields))}
	for k, v := range m.fields {
		out.fields[k] = v
	}
	return out
}

// Value materialises the map into a document value.
func (m *LWWMap) Value() models.Value {
	var root any = map[string]any{}
	for _, ch := range m.Changes() {
		root = assign(root, ch.Path, ch)
	}
	return models.MustFromAny(root)
}

func (m *LWWMap) put(ch FieldChange) {
	ch.Path = slices.Clone(ch.Path)
	m.fields[pathKey(ch.Path)] = ch
}

// assign writes ch into the plain tree node and returns the updated node.
func assign(node any, path []string, ch FieldChange) any {
	if len(path) == 0 {
		if ch.Deleted {
			return map[string]any{}
		}
		return ch.Value.Any()
	}

	obj, ok := node.(map[string]any)
	if !ok {
		if ch.Deleted {
			return node
		}
		obj = map[string]any{}
	}

	head, rest := path[0], path[1:]
	if len(rest) == 0 && ch.Deleted {
		delete(obj, head)
		return obj
	}
	if ch.Deleted {
		if _, exists := obj[head]; !exists {
			return obj
		}
	}
	obj[head] = assign(obj[head], rest, ch)
	return obj
}

type leaf struct {
	path  []string
	value models.Value
}

func leaves(v models.Value, prefix []string) []leaf {
	if v.Kind() != models.KindObject || v.Len() == 0 {
		return []leaf{{path: slices.Clone(prefix), value: v}}
	}
	var out []leaf
	for _, k := range v.Keys() {
		child, _ := v.Get(k)
		out = append(out, leaves(child, append(slices.Clone(prefix), k))...)
	}
	return out
}

// extendsPath reports whether some leaf lies strictly below prefix.
func extendsPath(ls []leaf, prefix []string) bool {
	for _, l := range ls {
		if len(l.path) > len(prefix) && slices.Equal(l.path[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

func sortChanges(changes []FieldChange) {
	slices.SortFunc(changes, func(a, b FieldChange) int {
		if c := Compare(a.Timestamp, a.ActorID, b.Timestamp, b.ActorID); c != 0 {
			return c
		}
		return strings.Compare(pathKey(a.Path), pathKey(b.Path))
	})
}

// pathKey encodes a path as a JSON array so keys may contain any character.
func pathKey(path []string) string {
	if path == nil {
		path = []string{}
	}
	b, _ := json.Marshal(path)
	return string(b)
}

func parsePathKey(key string) []string {
	var path []string
	_ = json.Unmarshal([]byte(key), &path)
	return path
}
