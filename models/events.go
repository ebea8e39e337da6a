// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// EventName identifies a vault lifecycle event.
type EventName string

const (
	EventDocumentCreated  EventName = "document:created"
	EventDocumentUpdated  EventName = "document:updated"
	EventDocumentDeleted  EventName = "document:deleted"
	EventSyncStarted      EventName = "sync:started"
	EventSyncCompleted    EventName = "sync:completed"
	EventSyncError        EventName = "sync:error"
	EventBackupCreated    EventName = "backup:created"
	EventVaultInitialized EventName = "vault:initialized"
	EventVaultClosed      EventName = "vault:closed"
	EventVaultRestored    EventName = "vault:restored"
)

// Event is delivered to subscribers. Only the fields relevant to Name are set:
//
//   - document:created   Document
//   - document:updated   Document, Previous
//   - document:deleted   DocumentID
//   - sync:completed     Changes
//   - sync:error         Err
//   - backup:created     Backup
type Event struct {
	Name       EventName
	DocumentID string
	Document   *Document
	Previous   *Document
	Changes    []SyncChange
	Backup     *BackupData
	Err        error
}
