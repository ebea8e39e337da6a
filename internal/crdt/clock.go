// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crdt holds the replication primitives: a Lamport clock and a
// field-level last-write-wins map used for structured document merges.
package crdt

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// LamportClock orders events across replicas without relying on wall-clock
// time. The counter never decreases except through Reset.
type LamportClock struct {
	counter int64
	actorID string
	mu      sync.Mutex
}

// NewLamportClock returns a clock owned by actorID. An empty actorID gets a
// fresh UUID.
func NewLamportClock(actorID string) *LamportClock {
	if actorID == "" {
		actorID = uuid.NewString()
	}
	return &LamportClock{actorID: actorID}
}

// Tick advances the clock for a new local event and returns the new value.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Observe moves the clock forward to remote if it is ahead and returns the
// resulting value. It never moves the clock back.
func (lc *LamportClock) Observe(remote int64) int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter {
		lc.counter = remote
	}
	return lc.counter
}

// Now returns the current value without advancing it.
func (lc *LamportClock) Now() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}

// ActorID returns the replica identifier the clock stamps events with.
func (lc *LamportClock) ActorID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.actorID
}

// Restore sets the counter, e.g. from a persisted journal. Values lower than
// the current counter are ignored.
func (lc *LamportClock) Restore(counter int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if counter > lc.counter {
		lc.counter = counter
	}
}

// Reset zeroes the counter and, if actorID is non-empty, replaces the actor.
func (lc *LamportClock) Reset(actorID string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter = 0
	if actorID != "" {
		lc.actorID = actorID
	}
}

// Compare orders two stamped events. The higher timestamp is newer; equal
// timestamps are ordered by actor id, the lexicographically larger one
// winning. It returns a positive number when (tsA, actorA) is newer.
func Compare(tsA int64, actorA string, tsB int64, actorB string) int {
	switch {
	case tsA > tsB:
		return 1
	case tsA < tsB:
		return -1
	}
	return strings.Compare(actorA, actorB)
}
