package vault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/mock"
	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/internal/vault"
	"github.com/MKhiriev/go-doc-vault/models"
)

// seqIDs hands out id-1, id-2, ... The first id becomes the actor id.
type seqIDs struct{ n int }

func (s *seqIDs) Generate() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

// expectOpen registers the calls Initialize makes against a fresh store.
func expectOpen(s *mock.MockDocumentStorage) {
	s.EXPECT().GetMetadata(gomock.Any(), "key_check").Return("", store.ErrMetadataNotFound)
	s.EXPECT().SetMetadata(gomock.Any(), "key_check", gomock.Any()).Return(nil)
	s.EXPECT().GetMetadata(gomock.Any(), "actor_id").Return("", store.ErrMetadataNotFound)
	s.EXPECT().SetMetadata(gomock.Any(), "actor_id", "id-1").Return(nil)
	s.EXPECT().GetDocumentTypes(gomock.Any()).Return(nil, nil)
	s.EXPECT().Close().Return(nil)
}

func openMocked(t *testing.T, s store.DocumentStorage, extra ...vault.Option) (context.Context, *vault.Vault) {
	t.Helper()
	extra = append([]vault.Option{
		vault.WithStorage(s),
		vault.WithIDGenerator(&seqIDs{}),
		vault.WithClock(stepClock()),
	}, extra...)
	return openVault(t, vault.Options{Key: newKey(t)}, extra...)
}

func TestVault_StorageFailureLeavesIndexAndQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	expectOpen(s)
	s.EXPECT().StoreDocument(gomock.Any(), gomock.Any()).Return(store.ErrExecutingStatement)

	ctx, v := openMocked(t, s)

	var events []models.EventName
	v.Subscribe(func(ev models.Event) { events = append(events, ev.Name) })

	_, err := v.CreateDocument(ctx, "note", note("never stored"), models.MetadataInput{})
	require.ErrorIs(t, err, store.ErrExecutingStatement)

	results, err := v.SearchDocuments(ctx, models.SearchOptions{Query: "stored"})
	require.NoError(t, err)
	assert.Empty(t, results)

	state, err := v.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Changes)
	assert.Empty(t, events)
}

func TestVault_UpdateStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	expectOpen(s)

	existing := &models.Document{ID: "doc", Type: "note", Data: note("old words"), Version: 4}
	s.EXPECT().GetDocument(gomock.Any(), "doc").Return(existing, nil)
	s.EXPECT().StoreDocument(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *models.Document) error {
		assert.Equal(t, int64(5), d.Version)
		return store.ErrExecutingStatement
	})

	ctx, v := openMocked(t, s)

	data := note("new words")
	_, err := v.UpdateDocument(ctx, "doc", vault.DocumentUpdate{Data: &data})
	require.ErrorIs(t, err, store.ErrExecutingStatement)

	results, err := v.SearchDocuments(ctx, models.SearchOptions{Query: "new"})
	require.NoError(t, err)
	assert.Empty(t, results)
	state, err := v.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Changes)
}

func TestVault_RebuildIndexLoadsEveryType(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	expectOpen(s)

	hello := &models.Document{ID: "n1", Type: "note", Data: note("hello there"), Version: 1}
	chat := &models.Document{ID: "c1", Type: "chat-message", Data: note("hello chat"), Version: 1}
	gomock.InOrder(
		s.EXPECT().GetDocumentTypes(gomock.Any()).Return([]string{"chat-message", "note"}, nil),
		s.EXPECT().GetDocumentsByType(gomock.Any(), "chat-message", 0, 0).Return([]*models.Document{chat}, nil),
		s.EXPECT().GetDocumentsByType(gomock.Any(), "note", 0, 0).Return([]*models.Document{hello}, nil),
		s.EXPECT().GetDocumentTypes(gomock.Any()).Return([]string{"chat-message", "note"}, nil),
		s.EXPECT().GetDocumentsByType(gomock.Any(), "chat-message", 0, 0).Return(nil, store.ErrIntegrity),
	)

	ctx, v := openMocked(t, s)

	n, err := v.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = v.RebuildIndex(ctx)
	require.ErrorIs(t, err, store.ErrIntegrity)

	results, err := v.SearchDocuments(ctx, models.SearchOptions{Query: "hello"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "n1"}, resultIDs(results), "a failed rebuild keeps the previous index")
}

func TestVault_ReadErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	expectOpen(s)
	s.EXPECT().GetDocument(gomock.Any(), "bad").Return(nil, store.ErrIntegrity)
	s.EXPECT().DeleteDocument(gomock.Any(), "bad").Return(false, store.ErrExecutingStatement)

	ctx, v := openMocked(t, s)

	_, err := v.GetDocument(ctx, "bad")
	assert.ErrorIs(t, err, store.ErrIntegrity)

	_, err = v.DeleteDocument(ctx, "bad")
	assert.ErrorIs(t, err, store.ErrExecutingStatement)
}

func TestVault_BackupStorageErrors(t *testing.T) {
	t.Run("stats", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := mock.NewMockDocumentStorage(ctrl)
		expectOpen(s)
		s.EXPECT().GetStats(gomock.Any()).Return(models.StorageStats{}, store.ErrExecutingQuery)

		ctx, v := openMocked(t, s)
		_, err := v.CreateBackup(ctx, "")
		assert.ErrorIs(t, err, store.ErrExecutingQuery)
	})

	t.Run("export", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := mock.NewMockDocumentStorage(ctrl)
		expectOpen(s)
		s.EXPECT().GetStats(gomock.Any()).Return(models.StorageStats{Count: 1}, nil)
		s.EXPECT().ExportDatabase(gomock.Any()).Return(nil, store.ErrExecutingStatement)

		ctx, v := openMocked(t, s)
		var created bool
		v.Subscribe(func(ev models.Event) { created = created || ev.Name == models.EventBackupCreated })

		_, err := v.CreateBackup(ctx, "")
		assert.ErrorIs(t, err, store.ErrExecutingStatement)
		assert.False(t, created)
	})
}

func TestVault_RestoreChecksumBeforeStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	expectOpen(s)
	// no RestoreDatabase or metadata expectations: a rejected backup touches nothing

	ctx, v := openMocked(t, s)

	err := v.RestoreFromBackup(ctx, &models.BackupData{
		Version:       models.BackupFormatVersion,
		EncryptedData: []byte("ciphertext"),
		Nonce:         make([]byte, 12),
		Checksum:      "00",
	}, "")
	assert.ErrorIs(t, err, vault.ErrBackupVerification)
}

func TestVault_SyncMarksRowStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	tr := mock.NewMockTransport(ctrl)
	expectOpen(s)

	var stored *models.Document
	s.EXPECT().StoreDocument(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *models.Document) error {
		stored = d.Clone()
		return nil
	})

	offline := errors.New("offline")
	gomock.InOrder(
		tr.EXPECT().Send(gomock.Any(), gomock.Len(1)).Return(offline),
		s.EXPECT().UpdateSyncStatus(gomock.Any(), []string{"id-2"}, models.SyncStatusError, nil).Return(nil),
		tr.EXPECT().Send(gomock.Any(), gomock.Len(1)).Return(nil),
		s.EXPECT().UpdateSyncStatus(gomock.Any(), []string{"id-2"}, models.SyncStatusSynced, gomock.Not(gomock.Nil())).Return(nil),
		s.EXPECT().GetDocument(gomock.Any(), "id-2").DoAndReturn(func(context.Context, string) (*models.Document, error) {
			d := stored.Clone()
			d.Metadata.SyncStatus = models.SyncStatusSynced
			return d, nil
		}),
	)

	ctx, v := openMocked(t, s, vault.WithTransport(tr))

	doc, err := v.CreateDocument(ctx, "note", note("to send"), models.MetadataInput{})
	require.NoError(t, err)
	require.Equal(t, "id-2", doc.ID)

	_, err = v.StartSync(ctx)
	require.ErrorIs(t, err, replica.ErrSyncFailed)
	assert.ErrorIs(t, err, offline)

	sent, err := v.StartSync(ctx)
	require.NoError(t, err)
	require.Len(t, sent, 1)

	results, err := v.SearchDocuments(ctx, models.SearchOptions{Query: "send"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.SyncStatusSynced, results[0].Document.Metadata.SyncStatus)
}

func TestVault_InjectedStorageKeyMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockDocumentStorage(ctrl)
	s.EXPECT().GetMetadata(gomock.Any(), "key_check").Return("00:00", nil)
	s.EXPECT().Close().Return(nil)

	v := vault.New(vault.Options{Key: newKey(t)}, logger.Nop(), vault.WithStorage(s))
	assert.ErrorIs(t, v.Initialize(testContext()), vault.ErrKeyMismatch)
}

func TestVault_InjectedJournal(t *testing.T) {
	ctrl := gomock.NewController(t)
	j := mock.NewMockJournal(ctrl)

	j.EXPECT().Load(gomock.Any()).Return(replica.JournalState{ActorID: "journaled", Clock: 41}, true, nil)
	j.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, st replica.JournalState) error {
		assert.Equal(t, "journaled", st.ActorID)
		assert.Equal(t, int64(42), st.Clock)
		require.Len(t, st.Pending, 1)
		return nil
	})
	j.EXPECT().Close().Return(nil)

	ctx, v := openVault(t, memOptions(t), vault.WithJournal(j))

	_, err := v.CreateDocument(ctx, "note", note("journaled"), models.MetadataInput{})
	require.NoError(t, err)

	state, err := v.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "journaled", state.ActorID)
	assert.Equal(t, int64(42), state.Clock)
}

func TestVault_JournalLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	j := mock.NewMockJournal(ctrl)
	j.EXPECT().Load(gomock.Any()).Return(replica.JournalState{}, false, errors.New("disk gone"))
	j.EXPECT().Close().Return(nil)

	v := vault.New(memOptions(t), logger.Nop(), vault.WithJournal(j))
	err := v.Initialize(testContext())
	require.ErrorIs(t, err, replica.ErrJournal)

	_, err = v.GetStats(testContext())
	assert.ErrorIs(t, err, vault.ErrNotInitialized, "a failed Initialize leaves the vault unopened")
}

// brokenSealer fails Encrypt once broken is set.
type brokenSealer struct {
	crypto.KeyChain
	broken bool
}

func (b *brokenSealer) Encrypt(plaintext []byte, key *crypto.Key) ([]byte, []byte, error) {
	if b.broken {
		return nil, nil, errors.New("sealer unavailable")
	}
	return b.KeyChain.Encrypt(plaintext, key)
}

func TestVault_InjectedKeyChain(t *testing.T) {
	kc := &brokenSealer{KeyChain: crypto.NewKeyChain()}
	ctx, v := openVault(t, memOptions(t), vault.WithKeyChain(kc))

	kept, err := v.CreateDocument(ctx, "note", note("sealed fine"), models.MetadataInput{})
	require.NoError(t, err)

	kc.broken = true
	_, err = v.CreateDocument(ctx, "note", note("never sealed"), models.MetadataInput{})
	require.ErrorContains(t, err, "sealer unavailable")

	stats, err := v.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Storage.Count)

	got, err := v.GetDocument(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, kept.ID, got.ID)
}
