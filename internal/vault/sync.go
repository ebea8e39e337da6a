// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/models"
)

// StartSync runs one synchronization round and returns the changes that were
// delivered. On success their documents are marked synced, unless they
// changed again while the round was in flight. On a transport failure the
// affected documents are marked error and the changes stay queued. A journal
// failure after delivery returns both the changes and the error.
func (v *Vault) StartSync(ctx context.Context) ([]models.SyncChange, error) {
	v.emit(models.Event{Name: models.EventSyncStarted})

	changes, err := v.startSync(ctx)
	if err != nil {
		v.emit(models.Event{Name: models.EventSyncError, Err: err})
		return changes, err
	}
	v.emit(models.Event{Name: models.EventSyncCompleted, Changes: changes})
	return changes, nil
}

func (v *Vault) startSync(ctx context.Context) ([]models.SyncChange, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	log := logger.FromContext(ctx)

	if v.engine == nil {
		return nil, fmt.Errorf("%w: sync is disabled", ErrConfiguration)
	}

	sent, err := v.engine.Synchronize(ctx)
	if err != nil && (sent == nil || errors.Is(err, replica.ErrSyncFailed)) {
		if errors.Is(err, replica.ErrSyncFailed) {
			ids := documentIDs(v.engine.PendingChanges(), nil)
			if serr := v.storage.UpdateSyncStatus(ctx, ids, models.SyncStatusError, nil); serr != nil {
				log.Warn().Err(serr).Str("func", "Vault.StartSync").Msg("failed to mark documents as errored")
			}
		}
		return nil, err
	}

	still := make(map[string]struct{})
	for _, ch := range v.engine.PendingChanges() {
		still[ch.ID] = struct{}{}
	}
	ids := documentIDs(sent, still)
	now := v.now().UTC()
	if err := v.storage.UpdateSyncStatus(ctx, ids, models.SyncStatusSynced, &now); err != nil {
		log.Warn().Err(err).Str("func", "Vault.StartSync").Msg("failed to mark documents as synced")
	}
	if v.index != nil {
		v.reindex(ctx, ids)
	}
	// delivered, but the journal could not record it
	return sent, err
}

// MergeRemoteChanges reconciles changes received from other replicas. The
// whole batch is validated first and rejected if any change is malformed. Winning
// remote changes are written to storage and the index; local documents that
// beat a remote change are marked conflict and the losing remote changes
// are returned.
func (v *Vault) MergeRemoteChanges(ctx context.Context, remote []models.SyncChange) ([]models.Conflict, error) {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	log := logger.FromContext(ctx)

	if v.engine == nil {
		return nil, fmt.Errorf("%w: sync is disabled", ErrConfiguration)
	}

	checked, err := v.checkRemote(ctx, remote)
	if err != nil {
		return nil, err
	}

	conflicts, err := v.engine.MergeRemoteChanges(ctx, checked, v.applyRemote)
	if len(conflicts) > 0 {
		ids := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			ids = append(ids, c.Local.ID)
		}
		if serr := v.storage.UpdateSyncStatus(ctx, ids, models.SyncStatusConflict, nil); serr != nil {
			log.Warn().Err(serr).Str("func", "Vault.MergeRemoteChanges").Msg("failed to mark conflicting documents")
		}
		if v.index != nil {
			v.reindex(ctx, ids)
		}
	}
	if err != nil {
		return conflicts, err
	}

	log.Info().
		Str("func", "Vault.MergeRemoteChanges").
		Int("received", len(remote)).
		Int("conflicts", len(conflicts)).
		Msg("remote changes merged")
	return conflicts, nil
}

// checkRemote validates every change and verifies that the hash of each
// create and update matches its data. It returns copies whose documents carry
// the recomputed content hash.
func (v *Vault) checkRemote(ctx context.Context, remote []models.SyncChange) ([]models.SyncChange, error) {
	checked := make([]models.SyncChange, len(remote))
	for i, ch := range remote {
		if err := v.validator.Validate(ctx, ch); err != nil {
			return nil, fmt.Errorf("%w: change %d: %w", replica.ErrInvalidChange, i, err)
		}
		if ch.Type != models.ChangeDelete {
			hash, err := v.contentHash(ch.Document.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: change %d: %w", replica.ErrInvalidChange, i, err)
			}
			if ch.Hash != hash {
				return nil, fmt.Errorf("%w: change %d: hash does not match document data", replica.ErrInvalidChange, i)
			}
			ch.Document = ch.Document.Clone()
			ch.Document.Metadata.ContentHash = hash
		}
		checked[i] = ch
	}
	return checked, nil
}

// applyRemote writes a winning remote change. It runs inside the engine's
// lock and only touches storage and the index. The content hash is always
// recomputed from the data being written.
func (v *Vault) applyRemote(ctx context.Context, ch models.SyncChange, merged bool) (*models.Document, error) {
	if ch.Type == models.ChangeDelete {
		if _, err := v.storage.DeleteDocument(ctx, ch.ID); err != nil {
			return nil, err
		}
		if v.index != nil {
			v.index.RemoveDocument(ch.ID)
		}
		return nil, nil
	}

	doc := ch.Document.Clone()
	hash, err := v.contentHash(doc.Data)
	if err != nil {
		return nil, err
	}
	doc.Metadata.ContentHash = hash
	doc.Metadata.Tags = models.NormalizeTags(doc.Metadata.Tags)
	if merged {
		// local state until the merged document reaches the other replicas
		doc.Metadata.SyncStatus = models.SyncStatusLocal
		doc.UpdatedAt = models.Millis(v.now())
	} else {
		now := models.Millis(v.now())
		doc.Metadata.SyncStatus = models.SyncStatusSynced
		doc.Metadata.LastSyncAt = &now
	}

	if err := v.storage.StoreDocument(ctx, doc); err != nil {
		return nil, err
	}
	if v.index != nil {
		v.index.IndexDocument(doc)
	}
	return doc, nil
}

// reindex refreshes the index entries of ids from storage so their sync
// status matches the row.
func (v *Vault) reindex(ctx context.Context, ids []string) {
	for _, id := range ids {
		doc, err := v.storage.GetDocument(ctx, id)
		if errors.Is(err, store.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("func", "Vault.reindex").Str("id", id).Msg("failed to reload document")
			continue
		}
		v.index.IndexDocument(doc)
	}
}

// GetSyncState returns a snapshot of the sync engine.
func (v *Vault) GetSyncState(ctx context.Context) (models.CRDTState, error) {
	_, release, err := v.acquire(ctx)
	if err != nil {
		return models.CRDTState{}, err
	}
	defer release()

	if v.engine == nil {
		return models.CRDTState{}, fmt.Errorf("%w: sync is disabled", ErrConfiguration)
	}
	return v.engine.State(), nil
}

// ResetSyncState drops every queued change and the logical clock.
func (v *Vault) ResetSyncState(ctx context.Context) error {
	ctx, release, err := v.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if v.engine == nil {
		return fmt.Errorf("%w: sync is disabled", ErrConfiguration)
	}
	return v.engine.ResetSyncState(ctx)
}

// documentIDs returns the distinct ids of changes that are not deletes and
// not in skip, in first-seen order.
func documentIDs(changes []models.SyncChange, skip map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(changes))
	ids := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.Type == models.ChangeDelete {
			continue
		}
		if _, ok := skip[ch.ID]; ok {
			continue
		}
		if _, ok := seen[ch.ID]; ok {
			continue
		}
		seen[ch.ID] = struct{}{}
		ids = append(ids, ch.ID)
	}
	return ids
}
