package session

import (
	"context"
	"time"

	"monger-backend/internal/logger"
)

const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Sweeper evicts idle sessions. Eviction takes the same per-session lock as
// the turn pipeline, so a turn in flight always finishes against live state
// before its session can disappear.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(store Store, ttl, interval time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, ttl: ttl, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := sw.SweepOnce()
			if evicted > 0 {
				logger.Logger.Info().Int("evicted", evicted).Msg("session sweep")
			}
		}
	}
}

// SweepOnce scans active sessions and evicts the expired ones, returning the
// eviction count. LastActivityAt is re-checked under the lock because a turn
// can land between the scan and the lock acquisition.
func (sw *Sweeper) SweepOnce() int {
	cutoff := sw.now().Add(-sw.ttl)
	evicted := 0
	for _, id := range sw.store.ActiveIDs() {
		id := id
		sw.store.WithLock(id, func() error {
			s, err := sw.store.Get(id)
			if err != nil {
				return nil
			}
			if s.LastActivityAt.After(cutoff) {
				return nil
			}
			if err := sw.store.Delete(id); err == nil {
				evicted++
			}
			return nil
		})
	}
	return evicted
}
