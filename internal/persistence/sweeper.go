package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper runs a store's Cleanup on a periodic schedule. It is the owned
// background task for backends that do not embed their own sweep (Redis,
// SQLite, Postgres): constructed next to the store, stopped on teardown,
// never a process-wide singleton. Sweeps run in their own goroutine and
// never block foreground operations.
type Sweeper struct {
	store    SessionStore
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper creates and starts a Sweeper. interval must be positive.
func NewSweeper(store SessionStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := s.store.Cleanup(context.Background(), time.Now())
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if stats.Demoted > 0 || stats.Purged > 0 {
				slog.Info("session sweep", "demoted", stats.Demoted, "purged", stats.Purged)
			}
		case <-s.stop:
			return
		}
	}
}

// Stop halts the sweeper and waits for the current sweep, if any, to
// finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
