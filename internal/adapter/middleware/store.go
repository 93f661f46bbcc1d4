package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// replayable reports whether the entry holds a finished response.
func (e idempEntry) replayable() bool {
	return !e.InProgress && e.Code != 0 && len(e.Body) > 0
}

// idempStore keeps one entry per key: a short-lived in-progress marker
// claimed with SETNX, later overwritten by the final response.
type idempStore struct {
	rdb     *redis.Client
	lockTTL time.Duration
	ttl     time.Duration
}

// reserve claims key for a new request. false means another request owns it.
func (s idempStore) reserve(ctx context.Context, key string, e idempEntry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode idempotency entry: %w", err)
	}
	return s.rdb.SetNX(ctx, key, payload, s.lockTTL).Result()
}

// load returns the stored entry; a vanished key yields a zero entry.
func (s idempStore) load(ctx context.Context, key string) (idempEntry, error) {
	var e idempEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, nil
	}
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return idempEntry{}, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return e, nil
}

func (s idempStore) finish(ctx context.Context, key string, e idempEntry) error {
	e.InProgress = false
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

// release drops the marker so the same request id can be retried.
func (s idempStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
