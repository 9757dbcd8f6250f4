package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestSQLiteStore(t *testing.T, archiveTTL time.Duration) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(db, archiveTTL)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	return store
}

func TestSQLiteStoreConformance(t *testing.T) {
	runSessionStoreTests(t, func(t *testing.T) SessionStore {
		return newTestSQLiteStore(t, 24*time.Hour)
	})
}

func TestSQLiteStoreArchivePurge(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, time.Hour)

	now := time.Now().UTC()
	if err := store.Create(ctx, testSession("s-1", now.Add(-2*time.Hour), time.Hour)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats, err := store.Cleanup(ctx, now)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if stats.Demoted != 1 {
		t.Fatalf("expected 1 demotion, got %+v", stats)
	}

	stats, err = store.Cleanup(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if stats.Purged != 1 {
		t.Fatalf("expected 1 purge, got %+v", stats)
	}
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after purge, got %v", err)
	}
}

func TestSQLiteStoreSchemaIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := NewSQLiteStore(db, time.Hour); err != nil {
		t.Fatalf("first NewSQLiteStore failed: %v", err)
	}
	if _, err := NewSQLiteStore(db, time.Hour); err != nil {
		t.Fatalf("second NewSQLiteStore failed: %v", err)
	}
}
