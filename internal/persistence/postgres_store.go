package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// PostgresStore is a SessionStore backed by PostgreSQL through database/sql.
// The caller imports the driver and owns the handle, mirroring SQLiteStore;
// only the placeholder syntax and column types differ.
type PostgresStore struct {
	db         *sql.DB
	archiveTTL time.Duration
}

var _ SessionStore = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB, archiveTTL time.Duration) (*PostgresStore, error) {
	if archiveTTL <= 0 {
		archiveTTL = 24 * time.Hour
	}
	s := &PostgresStore{db: db, archiveTTL: archiveTTL}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			version BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			document BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);`,
	)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, sess *api.Session) error {
	data, err := EncodeSession(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, version, expires_at, updated_at, document)
		VALUES ($1, $2, $3, $4, $5, $6)`,
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

func (s *PostgresStore) Get(ctx context.Context, id string) (*api.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM sessions WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeSession(data)
}

func (s *PostgresStore) Update(ctx context.Context, sess *api.Session) error {
	next := *sess
	next.Version = sess.Version + 1
	data, err := EncodeSession(&next)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $1, version = $2, expires_at = $3, updated_at = $4, document = $5
		WHERE id = $6 AND version = $7`,
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
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = $1`, sess.ID,
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

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
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

func (s *PostgresStore) List(ctx context.Context, includeExpired bool) ([]*api.Session, error) {
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

func (s *PostgresStore) Cleanup(ctx context.Context, now time.Time) (CleanupStats, error) {
	var stats CleanupStats

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document FROM sessions
		WHERE status = 'active' AND expires_at <= $1`,
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
			UPDATE sessions SET status = 'expired', updated_at = $1, document = $2
			WHERE id = $3`,
			now.UnixNano(), data, e.id,
		); err != nil {
			return stats, err
		}
		stats.Demoted++
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE status = 'expired' AND updated_at <= $1`,
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
func (s *PostgresStore) Close() error { return nil }
