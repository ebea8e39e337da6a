package replica

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-doc-vault/internal/logger"
)

// DefaultSyncInterval is used when a job is started without a positive
// interval.
const DefaultSyncInterval = 5 * time.Minute

// SyncJob calls a [SyncRunner] on a ticker. The job is idle until Start is
// called.
type SyncJob struct {
	runner SyncRunner
	logger *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a job driving runner.
func NewSyncJob(runner SyncRunner, log *logger.Logger) *SyncJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SyncJob{runner: runner, logger: log}
}

// Start stops any previously running job, then launches a goroutine calling
// RunSync every interval. A zero or negative interval means
// [DefaultSyncInterval]. The goroutine exits when ctx is cancelled or Stop is
// called.
func (j *SyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(j.logger.WithContext(ctx))
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				if err := j.runner.RunSync(jobCtx); err != nil {
					j.logger.Warn().Err(err).Str("func", "SyncJob.Start").Msg("background sync failed")
				}
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has exited. It
// is a no-op when the job is not running.
func (j *SyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
