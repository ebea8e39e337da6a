package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/query"
	"github.com/MKhiriev/go-doc-vault/internal/store"
	"github.com/MKhiriev/go-doc-vault/models"
)

func seededStorage(t *testing.T) (context.Context, store.DocumentStorage) {
	t.Helper()
	l := zerolog.Nop()
	ctx := l.WithContext(context.Background())

	kc := crypto.NewKeyChain()
	key, err := kc.GenerateKey()
	require.NoError(t, err)
	s, _, err := store.OpenDocumentStorage(ctx, config.DB{DSN: ":memory:"}, kc, func(context.Context, store.MetadataRepository) (*crypto.Key, error) {
		return key, nil
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	docs := []struct {
		id      string
		typ     string
		updated int64
		version int64
		status  models.SyncStatus
	}{
		{"n1", "note", 1_000, 1, models.SyncStatusLocal},
		{"n2", "note", 3_000, 3, models.SyncStatusSynced},
		{"n3", "note", 5_000, 5, models.SyncStatusError},
		{"t1", "task", 2_000, 2, models.SyncStatusConflict},
		{"t2", "task", 4_000, 1, models.SyncStatusLocal},
	}
	for _, d := range docs {
		require.NoError(t, s.StoreDocument(ctx, &models.Document{
			ID:   d.id,
			Type: d.typ,
			Data: models.MustFromAny(map[string]any{"title": d.id}),
			Metadata: models.Metadata{
				Tags:        []string{},
				ContentHash: "h-" + d.id,
				SyncStatus:  d.status,
			},
			CreatedAt: time.UnixMilli(d.updated - 500).UTC(),
			UpdatedAt: time.UnixMilli(d.updated).UTC(),
			Version:   d.version,
		}))
	}
	return ctx, s
}

func ids(docs []*models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestBuilder_AgainstSQLite(t *testing.T) {
	ctx, s := seededStorage(t)

	tests := []struct {
		name  string
		build func(b *query.Builder) *query.Builder
		want  []string
	}{
		{
			name:  "by type newest first",
			build: func(b *query.Builder) *query.Builder { return b.ByType("note").OrderBy("updatedAt", query.Desc) },
			want:  []string{"n3", "n2", "n1"},
		},
		{
			name:  "needs sync",
			build: func(b *query.Builder) *query.Builder { return b.NeedsSync().OrderBy("id", query.Asc) },
			want:  []string{"n1", "n3", "t2"},
		},
		{
			name: "version range within type",
			build: func(b *query.Builder) *query.Builder {
				return b.ByType("note").ByVersionRange(2, 5).OrderBy("version", query.Asc)
			},
			want: []string{"n2", "n3"},
		},
		{
			name: "updated after with paging",
			build: func(b *query.Builder) *query.Builder {
				return b.UpdatedAfter(time.UnixMilli(1_500)).OrderBy("updatedAt", query.Asc).Limit(2).Offset(1)
			},
			want: []string{"n2", "t2"},
		},
		{
			name: "offset without limit",
			build: func(b *query.Builder) *query.Builder {
				return b.ByType("note").OrderBy("updatedAt", query.Desc).Offset(1)
			},
			want: []string{"n2", "n1"},
		},
		{
			name: "or across types",
			build: func(b *query.Builder) *query.Builder {
				return b.Where("syncStatus", query.OpEq, models.SyncStatusConflict).
					Or("id", query.OpLike, "n%").
					OrderBy("id", query.Desc)
			},
			want: []string{"t1", "n3", "n2", "n1"},
		},
		{
			name:  "created after",
			build: func(b *query.Builder) *query.Builder { return b.CreatedAfter(time.UnixMilli(3_000)).OrderBy("createdAt", query.Asc) },
			want:  []string{"t2", "n3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := tt.build(query.New(s)).Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func TestBuilder_AgainstSQLite_DecryptsBodies(t *testing.T) {
	ctx, s := seededStorage(t)

	docs, err := query.New(s).Where("id", query.OpEq, "t1").Execute(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	title, ok := docs[0].Data.Get("title")
	require.True(t, ok)
	got, _ := title.AsString()
	assert.Equal(t, "t1", got)
	assert.Equal(t, models.SyncStatusConflict, docs[0].Metadata.SyncStatus)
}
