package termcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

// DefaultRedisPrefix is prepended to every key when no prefix is configured.
const DefaultRedisPrefix = "bilimsoz:"

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	URL       string // e.g. "redis://localhost:6379/0"
	KeyPrefix string
}

// RedisBackend stores one JSON document per subject under
// <prefix>entry:<SUBJECT> and tracks stored subjects in <prefix>subjects.
// Keys carry no Redis TTL; expiry is evaluated by the Store at read time so
// stale entries stay available as an offline fallback.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
}

type redisEntry struct {
	Subject  models.Subject `json:"subject"`
	SyncedAt int64          `json:"synced_at"`
	Terms    []models.Term  `json:"terms"`
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisBackendFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, keyPrefix string) *RedisBackend {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, keyPrefix: keyPrefix}
}

func (r *RedisBackend) entryKey(subject models.Subject) string {
	return r.keyPrefix + "entry:" + string(subject)
}

func (r *RedisBackend) subjectsKey() string {
	return r.keyPrefix + "subjects"
}

func (r *RedisBackend) Load(ctx context.Context, subject models.Subject) (*Entry, error) {
	val, err := r.client.Get(ctx, r.entryKey(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrCacheMiss
	}
	if err != nil {
		return nil, &apperr.CacheError{Op: "redis get", Cause: err}
	}

	var doc redisEntry
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, &apperr.CacheError{Op: "decode entry", Cause: err}
	}
	if doc.Terms == nil {
		doc.Terms = []models.Term{}
	}
	return &Entry{Subject: subject, Terms: doc.Terms, SyncedAt: time.UnixMilli(doc.SyncedAt)}, nil
}

func (r *RedisBackend) Save(ctx context.Context, e *Entry) error {
	payload, err := encodeRedisEntry(e)
	if err != nil {
		return &apperr.CacheError{Op: "encode entry", Cause: err}
	}
	if err := r.client.Set(ctx, r.entryKey(e.Subject), payload, 0).Err(); err != nil {
		return &apperr.CacheError{Op: "redis set", Cause: err}
	}
	if err := r.client.SAdd(ctx, r.subjectsKey(), string(e.Subject)).Err(); err != nil {
		return &apperr.CacheError{Op: "redis sadd", Cause: err}
	}
	return nil
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.subjectsKey()).Result()
	if err != nil {
		return &apperr.CacheError{Op: "redis smembers", Cause: err}
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.entryKey(models.Subject(m)))
	}
	keys = append(keys, r.subjectsKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return &apperr.CacheError{Op: "redis del", Cause: err}
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// Ping tests the Redis connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encodeRedisEntry(e *Entry) (string, error) {
	data, err := json.Marshal(redisEntry{
		Subject:  e.Subject,
		SyncedAt: e.SyncedAt.UnixMilli(),
		Terms:    e.Terms,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ Backend = (*RedisBackend)(nil)
