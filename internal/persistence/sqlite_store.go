package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// SQLiteStore is a SessionStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Both tiers share one table; the status column tells them apart. The JSON
// document is authoritative; the status/expires_at/version columns exist so
// sweeps and conflict checks never have to decode every row.
type SQLiteStore struct {
	db         *sql.DB
	archiveTTL time.Duration
}

var _ SessionStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB, archiveTTL time.Duration) (*SQLiteStore, error) {
	if archiveTTL <= 0 {
		archiveTTL = 24 * time.Hour
	}
	s := &SQLiteStore{db: db, archiveTTL: archiveTTL}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			version INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			document BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);`,
	)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, sess *api.Session) error {
	data, err := EncodeSession(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, version, expires_at, updated_at, document)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID,
		string(sess.Status),
		sess.Version,
		sess.ExpiresAt.UnixNano(),
		sess.UpdatedAt.UnixNano(),
		data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSessionExists
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*api.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM sessions WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeSession(data)
}

func (s *SQLiteStore) Update(ctx context.Context, sess *api.Session) error {
	next := *sess
	next.Version = sess.Version + 1
	data, err := EncodeSession(&next)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, version = ?, expires_at = ?, updated_at = ?, document = ?
		WHERE id = ? AND version = ?`,
		string(next.Status),
		next.Version,
		next.ExpiresAt.UnixNano(),
		next.UpdatedAt.UnixNano(),
		data,
		sess.ID,
		sess.Version,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a lost race from a missing row.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ?`, sess.ID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}

	sess.Version = next.Version
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, includeExpired bool) ([]*api.Session, error) {
	query := `SELECT document FROM sessions WHERE status = 'active'`
	if includeExpired {
		query = `SELECT document FROM sessions`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*api.Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		sess, err := DecodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Cleanup(ctx context.Context, now time.Time) (CleanupStats, error) {
	var stats CleanupStats

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document FROM sessions
		WHERE status = 'active' AND expires_at <= ?`,
		now.UnixNano(),
	)
	if err != nil {
		return stats, err
	}

	type expired struct {
		id   string
		sess *api.Session
	}
	var lapsed []expired
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return stats, err
		}
		sess, err := DecodeSession(data)
		if err != nil {
			rows.Close()
			return stats, err
		}
		lapsed = append(lapsed, expired{id: id, sess: sess})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	for _, e := range lapsed {
		e.sess.Status = api.StatusExpired
		e.sess.UpdatedAt = now
		data, err := EncodeSession(e.sess)
		if err != nil {
			return stats, err
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE sessions SET status = 'expired', updated_at = ?, document = ?
			WHERE id = ?`,
			now.UnixNano(), data, e.id,
		); err != nil {
			return stats, err
		}
		stats.Demoted++
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE status = 'expired' AND updated_at <= ?`,
		now.Add(-s.archiveTTL).UnixNano(),
	)
	if err != nil {
		return stats, err
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return stats, err
	}
	stats.Purged = int(purged)

	return stats, nil
}

// Close is a no-op: the database handle is owned by the caller.
func (s *SQLiteStore) Close() error { return nil }

func isUniqueViolation(err error) bool {
	// There is no portable constraint-error code across database/sql
	// drivers; match the messages of modernc.org/sqlite and Postgres.
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
