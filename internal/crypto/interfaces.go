// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

// KeyChain groups every cryptographic primitive the vault relies on. It knows
// nothing about storage, search or sync; its only job is producing and
// protecting keys and ciphertexts.
//
// Typical flow:
//
//	salt := GenerateSalt()                      (once per vault, stored in clear)
//	key  := DeriveKey(passphrase, salt, wf)     (on every unlock)
//	ct, nonce := Encrypt(body, key)             (on every write)
//	body := Decrypt(ct, nonce, key)             (on every read)
type KeyChain interface {
	// DeriveKey stretches a passphrase into a 256-bit key with Argon2id.
	// The salt is not secret; it only has to be unique per vault.
	DeriveKey(passphrase string, salt []byte, wf WorkFactor) (*Key, error)

	// GenerateSalt returns 16 random bytes.
	GenerateSalt() ([]byte, error)

	// GenerateKey returns a fresh random 256-bit key.
	GenerateKey() (*Key, error)

	// Encrypt seals plaintext with AES-256-GCM under key. A fresh random
	// 12-byte nonce is generated inside every call and returned alongside the
	// ciphertext; callers never supply nonces.
	Encrypt(plaintext []byte, key *Key) (ciphertext, nonce []byte, err error)

	// Decrypt opens ciphertext. Any authentication-tag failure yields
	// [ErrDecryption] and no plaintext.
	Decrypt(ciphertext, nonce []byte, key *Key) ([]byte, error)

	// Hash returns SHA-256(data).
	Hash(data []byte) []byte

	// HashHex returns the lowercase hex form of Hash(data).
	HashHex(data []byte) string
}
