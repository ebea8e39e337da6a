// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/subtle"
	"fmt"
	"sync"
)

// Key owns 256 bits of key material for the lifetime of an open vault. It is
// read-only after construction; [Key.Wipe] is the only way its bytes change.
type Key struct {
	mu sync.RWMutex
	b  []byte
}

// NewKey copies raw into a new Key. raw must be exactly [KeySize] bytes; the
// caller keeps ownership of raw and may wipe it afterwards.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrInvalidKey, len(raw), KeySize)
	}
	b := make([]byte, KeySize)
	copy(b, raw)
	return &Key{b: b}, nil
}

// Bytes returns a copy of the key material.
func (k *Key) Bytes() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.b == nil {
		return nil
	}
	cp := make([]byte, len(k.b))
	copy(cp, k.b)
	return cp
}

// Wipe zeroes the key material. Subsequent Encrypt/Decrypt calls with this
// key fail with [ErrKeyUnavailable]. Safe to call more than once.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	SecureWipe(k.b)
	k.b = nil
}

// ConstantTimeEqual compares a and b without short-circuiting on the first
// differing byte.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecureWipe overwrites buf with zeros.
func SecureWipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
