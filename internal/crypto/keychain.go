// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// SaltSize is the Argon2id salt length in bytes.
	SaltSize = 16
	// NonceSize is the AES-GCM standard nonce length in bytes.
	NonceSize = 12
)

// WorkFactor holds the Argon2id cost parameters.
type WorkFactor struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultWorkFactor returns the parameters recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
func DefaultWorkFactor() WorkFactor {
	return WorkFactor{
		Time:      1,
		MemoryKiB: 64 * 1024, // 64 MiB
		Threads:   4,
	}
}

func (wf WorkFactor) orDefault() WorkFactor {
	def := DefaultWorkFactor()
	if wf.Time == 0 {
		wf.Time = def.Time
	}
	if wf.MemoryKiB == 0 {
		wf.MemoryKiB = def.MemoryKiB
	}
	if wf.Threads == 0 {
		wf.Threads = def.Threads
	}
	return wf
}

// keyChain is the private implementation of [KeyChain].
type keyChain struct {
	random io.Reader
}

// NewKeyChain constructs a [KeyChain] reading randomness from the OS CSPRNG.
func NewKeyChain() KeyChain {
	return &keyChain{random: rand.Reader}
}

// DeriveKey implements [KeyChain]. Zero fields of wf fall back to
// [DefaultWorkFactor].
func (k *keyChain) DeriveKey(passphrase string, salt []byte, wf WorkFactor) (*Key, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidSalt, len(salt), SaltSize)
	}

	wf = wf.orDefault()
	raw := argon2.IDKey([]byte(passphrase), salt, wf.Time, wf.MemoryKiB, wf.Threads, KeySize)
	return &Key{b: raw}, nil
}

// GenerateSalt implements [KeyChain].
func (k *keyChain) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(k.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// GenerateKey implements [KeyChain].
func (k *keyChain) GenerateKey() (*Key, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(k.random, raw); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{b: raw}, nil
}

// Encrypt implements [KeyChain].
func (k *keyChain) Encrypt(plaintext []byte, key *Key) ([]byte, []byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(k.random, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt implements [KeyChain].
func (k *keyChain) Decrypt(ciphertext, nonce []byte, key *Key) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrDecryption, len(nonce))
	}

	// An error here almost always means a wrong key or tampered ciphertext.
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return plaintext, nil
}

// Hash implements [KeyChain].
func (k *keyChain) Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashHex implements [KeyChain].
func (k *keyChain) HashHex(data []byte) string {
	return hex.EncodeToString(k.Hash(data))
}

// newGCM holds the key's read lock while the cipher copies the key bytes, so
// a concurrent Wipe cannot zero them halfway through.
func newGCM(key *Key) (cipher.AEAD, error) {
	if key == nil {
		return nil, ErrKeyUnavailable
	}

	key.mu.RLock()
	if key.b == nil {
		key.mu.RUnlock()
		return nil, ErrKeyUnavailable
	}
	block, err := aes.NewCipher(key.b)
	key.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
