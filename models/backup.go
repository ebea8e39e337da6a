// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// BackupFormatVersion is the only backup layout currently produced.
const BackupFormatVersion = 1

// BackupData is an opaque, re-encrypted export of the whole store.
type BackupData struct {
	Version int `json:"version"`

	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	EncryptedData []byte `json:"encrypted_data"`
	Nonce         []byte `json:"nonce"`

	// Salt is set when the backup key was derived from a password.
	Salt []byte `json:"salt,omitempty"`

	// Checksum is hex(SHA-256(EncryptedData)).
	Checksum string `json:"checksum"`

	DocumentCount int64 `json:"document_count"`
}
