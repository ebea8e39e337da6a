// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import "errors"

var (
	// ErrDecryption is returned when the AES-GCM authentication tag does not
	// verify: wrong key, tampered ciphertext or tampered nonce.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidKey is returned when key material has the wrong length.
	ErrInvalidKey = errors.New("invalid key")

	// ErrKeyUnavailable is returned when a nil or wiped key is used.
	ErrKeyUnavailable = errors.New("key unavailable")

	// ErrInvalidSalt is returned when a salt is too short.
	ErrInvalidSalt = errors.New("invalid salt")

	// ErrEmptyPassphrase is returned by DeriveKey for an empty passphrase.
	ErrEmptyPassphrase = errors.New("empty passphrase")
)
