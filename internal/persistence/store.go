// Package persistence stores draft session documents under a two-tier
// lifecycle: an active tier with a sliding TTL and an archive tier with a
// longer retention TTL. All backends satisfy the same SessionStore
// interface, so the backend choice is operational, not behavioral.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// DefaultSweepInterval is the cadence of background TTL sweeps when the
// caller does not choose one.
const DefaultSweepInterval = time.Minute

var (
	// ErrSessionNotFound is returned when a session id matches nothing in
	// either tier.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned by Create when the id is already taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrVersionConflict is returned by Update when the stored document's
	// version no longer matches the one the caller read.
	ErrVersionConflict = errors.New("session version conflict")
)

// CleanupStats reports what one cleanup sweep did.
type CleanupStats struct {
	// Demoted counts active sessions whose TTL had lapsed and that were
	// moved into the archive tier.
	Demoted int

	// Purged counts archive entries older than the archive TTL that were
	// removed for good.
	Purged int
}

// SessionStore persists one document per session, keyed by session id.
// Updates follow a read-whole-document, write-whole-document pattern with
// optimistic versioning: Update compares the document's Version against
// the stored one, rejects on mismatch, and bumps it on success.
type SessionStore interface {
	// Create inserts a new active session document.
	Create(ctx context.Context, sess *api.Session) error

	// Get fetches a session by id. It transparently checks the archive
	// tier when the active tier misses, so callers never need to know
	// which tier a session currently occupies.
	Get(ctx context.Context, id string) (*api.Session, error)

	// Update replaces the whole session document. Returns
	// ErrVersionConflict if a concurrent writer got there first; on
	// success the document's Version is incremented.
	Update(ctx context.Context, sess *api.Session) error

	// Delete removes a session from whichever tier it occupies.
	Delete(ctx context.Context, id string) error

	// List returns all active sessions, plus archived ones when
	// includeExpired is set.
	List(ctx context.Context, includeExpired bool) ([]*api.Session, error)

	// Cleanup demotes active sessions whose TTL lapsed before now into the
	// archive tier and purges archive entries past the archive TTL. It is
	// idempotent and O(active session count).
	Cleanup(ctx context.Context, now time.Time) (CleanupStats, error)

	// Close releases backend resources and stops any owned background
	// work.
	Close() error
}
