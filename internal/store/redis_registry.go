package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

const redisKeyPrefix = "opobank:session:"

// maxUpdateRetries bounds optimistic-lock retries when two requests touch
// the same session at once.
const maxUpdateRetries = 5

// RedisRegistry stores live sessions as JSON snapshots so several server
// instances can share them. Sessions expire after ttl of inactivity.
type RedisRegistry struct {
	client *redis.Client
	repo   *questionbank.Repository
	ttl    time.Duration
}

var _ Registry = (*RedisRegistry)(nil)

type redisRecord struct {
	UserID   string                   `json:"user_id"`
	Snapshot practicesession.Snapshot `json:"snapshot"`
}

func NewRedisRegistry(client *redis.Client, repo *questionbank.Repository, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, repo: repo, ttl: ttl}
}

// Ping checks connectivity at startup.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRegistry) Create(ctx context.Context, live LiveSession) error {
	data, err := encodeLive(live)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+live.Session.ID, data, r.ttl).Err()
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (LiveSession, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return LiveSession{}, ErrNotFound
	}
	if err != nil {
		return LiveSession{}, err
	}
	return decodeLive(r.repo, data)
}

func (r *RedisRegistry) Update(ctx context.Context, id string, fn func(LiveSession) error) error {
	key := redisKeyPrefix + id
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		live, err := decodeLive(r.repo, data)
		if err != nil {
			return err
		}
		if err := fn(live); err != nil {
			return err
		}
		updated, err := encodeLive(live)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update session %s: too much contention", id)
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeLive(live LiveSession) ([]byte, error) {
	return json.Marshal(redisRecord{UserID: live.UserID, Snapshot: live.Session.Snapshot()})
}

func decodeLive(repo *questionbank.Repository, data []byte) (LiveSession, error) {
	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return LiveSession{}, fmt.Errorf("decode session: %w", err)
	}
	session, err := practicesession.Restore(repo, rec.Snapshot)
	if err != nil {
		return LiveSession{}, err
	}
	return LiveSession{UserID: rec.UserID, Session: session}, nil
}
