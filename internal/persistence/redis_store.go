package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// RedisStore is a SessionStore backed by Redis. It uses a simple key
// structure with one namespace per tier:
//
//	<prefix>act:<id>   => JSON session document (active tier)
//	<prefix>arch:<id>  => JSON session document (archive tier)
//	<prefix>idx:active => SET of active session IDs
//	<prefix>idx:arch   => SET of archived session IDs
//
// Archive keys carry the archive TTL natively, so purging rides Redis
// expiry. Active keys get a native safety expiry of sliding TTL plus
// archive TTL; logical demotion into the archive happens in Cleanup, which
// must run before the safety expiry can fire.
//
// Optimistic versioning uses WATCH: an Update that loses the race against
// a concurrent writer fails with ErrVersionConflict.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	archiveTTL time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. prefix is optional but recommended
// (e.g. "draftsess:"). The client remains owned by the caller.
func NewRedisStore(client *redis.Client, prefix string, archiveTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "draftsess:"
	}
	if archiveTTL <= 0 {
		archiveTTL = 24 * time.Hour
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		archiveTTL: archiveTTL,
	}
}

func (s *RedisStore) keyActive(id string) string  { return s.prefix + "act:" + id }
func (s *RedisStore) keyArchive(id string) string { return s.prefix + "arch:" + id }
func (s *RedisStore) keyActiveIdx() string        { return s.prefix + "idx:active" }
func (s *RedisStore) keyArchiveIdx() string       { return s.prefix + "idx:arch" }

// activeExpiry is the native safety expiry for an active key.
func (s *RedisStore) activeExpiry(sess *api.Session, now time.Time) time.Duration {
	ttl := sess.ExpiresAt.Sub(now) + s.archiveTTL
	if ttl <= 0 {
		ttl = s.archiveTTL
	}
	return ttl
}

func (s *RedisStore) Create(ctx context.Context, sess *api.Session) error {
	data, err := EncodeSession(sess)
	if err != nil {
		return err
	}

	if n, err := s.client.Exists(ctx, s.keyActive(sess.ID), s.keyArchive(sess.ID)).Result(); err != nil {
		return err
	} else if n > 0 {
		return ErrSessionExists
	}

	ok, err := s.client.SetNX(ctx, s.keyActive(sess.ID), data, s.activeExpiry(sess, time.Now())).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}

	return s.client.SAdd(ctx, s.keyActiveIdx(), sess.ID).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*api.Session, error) {
	data, err := s.client.Get(ctx, s.keyActive(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		data, err = s.client.Get(ctx, s.keyArchive(id)).Bytes()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return DecodeSession(data)
}

func (s *RedisStore) Update(ctx context.Context, sess *api.Session) error {
	key := s.keyActive(sess.ID)
	expiry := s.activeExpiry(sess, time.Now())

	if n, err := s.client.Exists(ctx, key).Result(); err != nil {
		return err
	} else if n == 0 {
		// Session may live in the archive tier (resume bookkeeping).
		key = s.keyArchive(sess.ID)
		expiry = redis.KeepTTL
		if n, err := s.client.Exists(ctx, key).Result(); err != nil {
			return err
		} else if n == 0 {
			return ErrSessionNotFound
		}
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}

		current, err := DecodeSession(data)
		if err != nil {
			return err
		}
		if current.Version != sess.Version {
			return ErrVersionConflict
		}

		next := *sess
		next.Version = sess.Version + 1
		payload, err := EncodeSession(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, expiry)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}

	sess.Version++
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, s.keyActive(id), s.keyArchive(id)).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, s.keyActiveIdx(), id)
	pipe.SRem(ctx, s.keyArchiveIdx(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, includeExpired bool) ([]*api.Session, error) {
	sessions, err := s.listTier(ctx, s.keyActiveIdx(), s.keyActive)
	if err != nil {
		return nil, err
	}

	if includeExpired {
		archived, err := s.listTier(ctx, s.keyArchiveIdx(), s.keyArchive)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, archived...)
	}

	return sessions, nil
}

func (s *RedisStore) listTier(ctx context.Context, idxKey string, keyFn func(string) string) ([]*api.Session, error) {
	ids, err := s.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, keyFn(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var sessions []*api.Session
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Key expired natively; scrub the stale index entry.
				_ = s.client.SRem(ctx, idxKey, ids[i]).Err()
				continue
			}
			return nil, err
		}
		sess, err := DecodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, now time.Time) (CleanupStats, error) {
	var stats CleanupStats

	ids, err := s.client.SMembers(ctx, s.keyActiveIdx()).Result()
	if err != nil {
		return stats, err
	}

	for _, id := range ids {
		data, err := s.client.Get(ctx, s.keyActive(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			_ = s.client.SRem(ctx, s.keyActiveIdx(), id).Err()
			continue
		}
		if err != nil {
			return stats, err
		}

		sess, err := DecodeSession(data)
		if err != nil {
			return stats, err
		}
		if sess.ExpiresAt.After(now) {
			continue
		}

		sess.Status = api.StatusExpired
		sess.UpdatedAt = now
		payload, err := EncodeSession(sess)
		if err != nil {
			return stats, err
		}

		pipe := s.client.TxPipeline()
		pipe.Set(ctx, s.keyArchive(id), payload, s.archiveTTL)
		pipe.SAdd(ctx, s.keyArchiveIdx(), id)
		pipe.Del(ctx, s.keyActive(id))
		pipe.SRem(ctx, s.keyActiveIdx(), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return stats, err
		}
		stats.Demoted++
	}

	// Archive payloads expire natively; reconcile the index with what is
	// actually left and count the difference as purged.
	archIDs, err := s.client.SMembers(ctx, s.keyArchiveIdx()).Result()
	if err != nil {
		return stats, err
	}
	for _, id := range archIDs {
		n, err := s.client.Exists(ctx, s.keyArchive(id)).Result()
		if err != nil {
			return stats, err
		}
		if n == 0 {
			_ = s.client.SRem(ctx, s.keyArchiveIdx(), id).Err()
			stats.Purged++
		}
	}

	return stats, nil
}

// Close is a no-op: the Redis client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
