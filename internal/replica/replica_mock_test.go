package replica_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-doc-vault/internal/crdt"
	"github.com/MKhiriev/go-doc-vault/internal/mock"
	"github.com/MKhiriev/go-doc-vault/internal/replica"
	"github.com/MKhiriev/go-doc-vault/models"
)

func TestSyncJob_RunnerErrorsKeepTicking(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mock.NewMockSyncRunner(ctrl)

	ticks := make(chan struct{}, 8)
	runner.EXPECT().RunSync(gomock.Any()).MinTimes(2).DoAndReturn(func(ctx context.Context) error {
		assert.NotNil(t, ctx)
		select {
		case ticks <- struct{}{}:
		default:
		}
		return errors.New("peer offline")
	})

	job := replica.NewSyncJob(runner, nil)
	job.Start(context.Background(), 5*time.Millisecond)

	for range 2 {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			job.Stop()
			t.Fatal("runner was not called again after a failure")
		}
	}
	job.Stop()
}

func TestEngine_StructuredMergerIsPluggable(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock.NewMockStructuredMerger(ctrl)

	e, err := replica.NewEngine(context.Background(), nil, replica.WithActorID("me"), replica.WithMerger(m))
	require.NoError(t, err)

	data := models.MustFromAny(map[string]any{"title": "draft"})
	created := crdt.FromValue(data, 1, "me")
	m.EXPECT().Create(data, int64(1), "me").Return(created)

	doc := e.CreateStructuredDoc(data)
	assert.Same(t, created, doc)

	remote := crdt.FromValue(models.MustFromAny(map[string]any{"title": "final"}), 9, "peer")
	m.EXPECT().Merge(doc, remote).Return(remote)

	merged := e.MergeStructuredDocs(doc, remote)
	assert.Same(t, remote, merged)
	assert.Equal(t, int64(9), e.State().Clock, "clock observes the merged document")

	m.EXPECT().ChangesSince(merged, int64(0)).Return(nil)
	assert.Nil(t, e.GetChangesSince(merged, 0))
}
