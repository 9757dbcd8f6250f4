package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	// ArchiveTTL is how long demoted sessions are retained before purge.
	ArchiveTTL time.Duration

	// SweepInterval is the cadence of the owned background TTL sweep.
	// Zero disables the sweeper (useful in tests, where Cleanup is driven
	// explicitly).
	SweepInterval time.Duration
}

// MemoryStore is a goroutine-safe SessionStore backed by two maps, one per
// tier. It owns its background TTL sweeper: the goroutine starts on
// construction and stops on Close.
//
// Documents are cloned through the codec on every read and write so callers
// never alias stored state; a read-modify-write cycle only becomes visible
// through Update.
type MemoryStore struct {
	mu      sync.RWMutex
	active  map[string]*api.Session
	archive map[string]*api.Session

	archiveTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore and starts its sweeper if
// cfg.SweepInterval is positive.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = 24 * time.Hour
	}

	s := &MemoryStore{
		active:     make(map[string]*api.Session),
		archive:    make(map[string]*api.Session),
		archiveTTL: cfg.ArchiveTTL,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go s.sweep(cfg.SweepInterval)
	} else {
		close(s.done)
	}

	return s
}

func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := s.Cleanup(context.Background(), time.Now())
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

func (s *MemoryStore) Create(ctx context.Context, sess *api.Session) error {
	stored, err := CloneSession(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[sess.ID]; ok {
		return ErrSessionExists
	}
	if _, ok := s.archive[sess.ID]; ok {
		return ErrSessionExists
	}

	s.active[sess.ID] = stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*api.Session, error) {
	s.mu.RLock()
	sess, ok := s.active[id]
	if !ok {
		sess, ok = s.archive[id]
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return CloneSession(sess)
}

func (s *MemoryStore) Update(ctx context.Context, sess *api.Session) error {
	stored, err := CloneSession(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.active[sess.ID]
	tier := s.active
	if !ok {
		current, ok = s.archive[sess.ID]
		tier = s.archive
	}
	if !ok {
		return ErrSessionNotFound
	}

	if current.Version != sess.Version {
		return ErrVersionConflict
	}

	stored.Version++
	tier[sess.ID] = stored
	sess.Version = stored.Version
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; ok {
		delete(s.active, id)
		return nil
	}
	if _, ok := s.archive[id]; ok {
		delete(s.archive, id)
		return nil
	}
	return ErrSessionNotFound
}

func (s *MemoryStore) List(ctx context.Context, includeExpired bool) ([]*api.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Session
	for _, sess := range s.active {
		clone, err := CloneSession(sess)
		if err != nil {
			return nil, err
		}
		result = append(result, clone)
	}
	if includeExpired {
		for _, sess := range s.archive {
			clone, err := CloneSession(sess)
			if err != nil {
				return nil, err
			}
			result = append(result, clone)
		}
	}
	return result, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, now time.Time) (CleanupStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats CleanupStats

	for id, sess := range s.active {
		if sess.ExpiresAt.After(now) {
			continue
		}
		sess.Status = api.StatusExpired
		sess.UpdatedAt = now
		s.archive[id] = sess
		delete(s.active, id)
		stats.Demoted++
	}

	cutoff := now.Add(-s.archiveTTL)
	for id, sess := range s.archive {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.archive, id)
			stats.Purged++
		}
	}

	return stats, nil
}

// Close stops the sweeper and waits for it to exit.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
