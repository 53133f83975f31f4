// internal/app/system/workers/pendingcleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// PendingPurger deletes accounts that were never approved.
type PendingPurger interface {
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PendingAccountCleanup is a background worker that removes registrations
// nobody approved within ttl.
type PendingAccountCleanup struct {
	users    PendingPurger
	log      *zap.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPendingAccountCleanup creates the worker. It does not start it.
//
// Parameters:
//   - users: the user store
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 1 hour)
//   - ttl: how old an unapproved registration must be before it is removed
func NewPendingAccountCleanup(users PendingPurger, logger *zap.Logger, interval, ttl time.Duration) *PendingAccountCleanup {
	return &PendingAccountCleanup{
		users:    users,
		log:      logger,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *PendingAccountCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("pending account cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *PendingAccountCleanup) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("pending account cleanup worker stopped")
	})
}

// RunOnce performs one cleanup pass and returns how many accounts were
// removed. Running it twice in a row removes nothing the second time.
func (w *PendingAccountCleanup) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.ttl)
	count, err := w.users.DeletePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		w.log.Info("removed pending accounts",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff))
	}
	return count, nil
}

func (w *PendingAccountCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *PendingAccountCleanup) cleanup() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "pending account cleanup")
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Error("failed to remove pending accounts", zap.Error(err))
	}
}
