package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// testSession builds a minimal active session for store tests.
func testSession(id string, now time.Time, ttl time.Duration) *api.Session {
	return &api.Session{
		ID:        id,
		Name:      "Test Workflow",
		Status:    api.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
		Draft: api.Draft{
			Name: "Test Workflow",
			Nodes: []api.DraftNode{
				{
					ID:             "n-1",
					Name:           "Webhook",
					SimplifiedType: "webhook",
					ResolvedType:   "n8n-nodes-base.webhook",
					TypeVersion:    2,
					Position:       [2]int{240, 300},
					Metadata:       api.NodeMetadata{ExpectedOutputs: 1, Category: api.CategoryTrigger},
				},
			},
		},
		OperationsLog: []api.OperationLogEntry{
			{Operation: "start", Timestamp: now},
		},
	}
}

// runSessionStoreTests exercises the behavior every SessionStore backend
// must share. Backend test files call it with their own constructor.
func runSessionStoreTests(t *testing.T, newStore func(t *testing.T) SessionStore) {
	ctx := context.Background()

	t.Run("CreateGetUpdate", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC().Truncate(time.Millisecond)

		sess := testSession("s-1", now, time.Hour)
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := store.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Name != sess.Name || got.Status != api.StatusActive {
			t.Fatalf("unexpected session: %+v", got)
		}
		if len(got.Draft.Nodes) != 1 || got.Draft.Nodes[0].Metadata.ExpectedOutputs != 1 {
			t.Fatalf("draft did not round-trip: %+v", got.Draft)
		}

		got.Draft.Nodes = append(got.Draft.Nodes, api.DraftNode{
			ID: "n-2", Name: "HTTP Request", SimplifiedType: "http",
			Metadata: api.NodeMetadata{ExpectedOutputs: 1, Category: api.CategoryAction},
		})
		got.UpdatedAt = now.Add(time.Minute)
		got.ExpiresAt = now.Add(time.Hour + time.Minute)
		if err := store.Update(ctx, got); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got.Version != 1 {
			t.Fatalf("expected version bump to 1, got %d", got.Version)
		}

		again, err := store.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get after update failed: %v", err)
		}
		if len(again.Draft.Nodes) != 2 {
			t.Fatalf("expected 2 nodes after update, got %d", len(again.Draft.Nodes))
		}
		if again.Version != 1 {
			t.Fatalf("expected stored version 1, got %d", again.Version)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC()

		if err := store.Create(ctx, testSession("dup", now, time.Hour)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := store.Create(ctx, testSession("dup", now, time.Hour)); !errors.Is(err, ErrSessionExists) {
			t.Fatalf("expected ErrSessionExists, got %v", err)
		}
	})

	t.Run("VersionConflict", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC()

		if err := store.Create(ctx, testSession("race", now, time.Hour)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		first, err := store.Get(ctx, "race")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		second, err := store.Get(ctx, "race")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		first.Name = "writer one"
		if err := store.Update(ctx, first); err != nil {
			t.Fatalf("first Update failed: %v", err)
		}

		second.Name = "writer two"
		if err := store.Update(ctx, second); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := newStore(t)
		sess := testSession("ghost", time.Now().UTC(), time.Hour)
		if err := store.Update(ctx, sess); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC()

		if err := store.Create(ctx, testSession("del", now, time.Hour)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := store.Delete(ctx, "del"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Get(ctx, "del"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "del"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound on double delete, got %v", err)
		}
	})

	t.Run("CleanupDemotesToArchive", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC()

		if err := store.Create(ctx, testSession("old", now.Add(-2*time.Hour), time.Hour)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := store.Create(ctx, testSession("fresh", now, time.Hour)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		stats, err := store.Cleanup(ctx, now)
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if stats.Demoted != 1 {
			t.Fatalf("expected 1 demotion, got %+v", stats)
		}

		// Get reaches the archive tier transparently.
		archived, err := store.Get(ctx, "old")
		if err != nil {
			t.Fatalf("Get of archived session failed: %v", err)
		}
		if archived.Status != api.StatusExpired {
			t.Fatalf("expected status expired, got %s", archived.Status)
		}

		// Cleanup is idempotent.
		stats, err = store.Cleanup(ctx, now)
		if err != nil {
			t.Fatalf("second Cleanup failed: %v", err)
		}
		if stats.Demoted != 0 {
			t.Fatalf("expected idempotent cleanup, got %+v", stats)
		}

		active, err := store.List(ctx, false)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != "fresh" {
			t.Fatalf("expected only fresh session active, got %d", len(active))
		}

		all, err := store.List(ctx, true)
		if err != nil {
			t.Fatalf("List(includeExpired) failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected both sessions with includeExpired, got %d", len(all))
		}
	})
}
