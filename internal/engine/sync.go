package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/remote"
)

// updateDataLocked is the sync routine. It always persists the current
// snapshot to the local cache first, then either pushes to the remote
// store (when the debounce window has elapsed) or schedules the next
// attempt for the moment the window reopens. Exactly one timer is pending
// at any time; each scheduling step replaces the previous one.
func (e *Engine) updateDataLocked(ctx context.Context) {
	now := e.now().Unix()
	snapshot := e.snapshotLocked(now)

	// Local cache is written on every invocation, change or retry alike.
	e.writeSnapshotLocked(ctx, snapshot)

	// Logged out / offline: defer indefinitely.
	if e.remote == nil {
		e.armTimerLocked(e.retryInterval)
		return
	}

	if e.remoteLastUpdated == 0 {
		lu, err := e.remote.LastUpdated(ctx, e.userID)
		if err != nil {
			if !errors.Is(err, remote.ErrNotFound) {
				e.log.Warn("fetching remote timestamp failed", zap.Error(err))
			}
			e.armTimerLocked(e.retryInterval)
			return
		}
		e.remoteLastUpdated = lu
	}

	windowSec := int64(e.syncWindow / time.Second)
	delta := now - e.remoteLastUpdated

	if delta > windowSec {
		if err := e.remote.UpsertUserData(ctx, e.userID, snapshot); err != nil {
			e.log.Warn("pushing state failed, will retry", zap.Error(err))
			e.armTimerLocked(e.retryInterval)
			return
		}
		e.remoteLastUpdated = now
		e.armTimerLocked(e.retryInterval)
		return
	}

	// Inside the debounce window: fire exactly when it reopens.
	e.armTimerLocked(time.Duration(windowSec-delta+1) * time.Second)
}

// armTimerLocked replaces the pending sync timer. Cancel-and-reschedule is
// the only mutation allowed on the slot.
func (e *Engine) armTimerLocked(d time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.closed {
		return
	}

	e.timerDelay = d
	e.timer = time.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.updateDataLocked(context.Background())
	})
}

// pendingSyncDelay reports the delay the current timer was armed with, or
// zero when no timer is pending.
func (e *Engine) pendingSyncDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer == nil {
		return 0
	}
	return e.timerDelay
}
