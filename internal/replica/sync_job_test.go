package replica

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// spyRunner counts RunSync calls.
type spyRunner struct {
	calls atomic.Int64
	err   error
}

func (s *spyRunner) RunSync(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestSyncJob_Start_CallsRunner(t *testing.T) {
	spy := &spyRunner{}
	job := NewSyncJob(spy, nil)

	// 10ms interval, roughly 5 ticks in 55ms
	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	got := spy.calls.Load()
	assert.GreaterOrEqual(t, got, int64(3), "RunSync called %d times", got)
}

func TestSyncJob_Stop_StopsGoroutine(t *testing.T) {
	spy := &spyRunner{}
	job := NewSyncJob(spy, nil)

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	afterStop := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, afterStop, spy.calls.Load(), "no calls after Stop")
}

func TestSyncJob_Stop_NoPanic(t *testing.T) {
	job := NewSyncJob(&spyRunner{}, nil)
	assert.NotPanics(t, func() { job.Stop() })

	job.Start(context.Background(), 10*time.Millisecond)
	job.Stop()
	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_Start_DefaultInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		spy := &spyRunner{}
		job := NewSyncJob(spy, nil)

		job.Start(context.Background(), interval)
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.Zero(t, spy.calls.Load(), "interval %v falls back to %v", interval, DefaultSyncInterval)
	}
}

func TestSyncJob_Restart(t *testing.T) {
	spy := &spyRunner{}
	job := NewSyncJob(spy, nil)

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	before := spy.calls.Load()
	assert.Positive(t, before)

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.Greater(t, spy.calls.Load(), before)
}

func TestSyncJob_ContextCancel(t *testing.T) {
	job := NewSyncJob(&spyRunner{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung after context cancel")
	}
}

func TestSyncJob_ErrorsDoNotStopJob(t *testing.T) {
	spy := &spyRunner{err: assert.AnError}
	job := NewSyncJob(spy, nil)

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	assert.GreaterOrEqual(t, spy.calls.Load(), int64(3))
}

func TestSyncRunnerFunc(t *testing.T) {
	var called bool
	var r SyncRunner = SyncRunnerFunc(func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, r.RunSync(context.Background()))
	assert.True(t, called)
}
