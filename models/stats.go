// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// StorageStats aggregates the stored records.
type StorageStats struct {
	Count         int64            `json:"count"`
	TotalSize     int64            `json:"total_size"`
	EncryptedSize int64            `json:"encrypted_size"`
	ByType        map[string]int64 `json:"by_type"`
}

// SyncStatusStats is the replica's view of synchronization.
type SyncStatusStats struct {
	Status       SyncStatus `json:"status"`
	Pending      int        `json:"pending"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
}

// VaultStats merges storage statistics with the sync engine's state.
type VaultStats struct {
	Storage StorageStats     `json:"storage"`
	Sync    *SyncStatusStats `json:"sync,omitempty"`
	Indexed int              `json:"indexed"`
}
