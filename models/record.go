// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// EncryptedRecord is the row-level representation of a [Document] as it is
// persisted. Only the body is encrypted; the remaining columns are cleartext
// so they can be filtered and ordered on.
type EncryptedRecord struct {
	ID   string
	Type string

	// EncryptedData is the AES-256-GCM ciphertext of the serialized [RecordBody].
	EncryptedData []byte
	// Nonce is unique per encryption.
	Nonce []byte
	// Checksum is SHA-256(EncryptedData) and is verified before decryption.
	Checksum []byte

	// Size is the serialized body length before encryption.
	Size int64

	// Unix milliseconds.
	CreatedAt  int64
	UpdatedAt  int64
	StoredAt   int64
	LastSyncAt *int64

	Version    int64
	SyncStatus SyncStatus
}

// RecordBody is the encrypted part of an [EncryptedRecord].
type RecordBody struct {
	Data           Value    `json:"data"`
	Tags           []string `json:"tags"`
	SearchableText *string  `json:"searchable_text,omitempty"`
	ContentHash    string   `json:"content_hash"`
}
