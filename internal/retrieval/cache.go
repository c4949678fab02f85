package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a cached result set is reused.
const DefaultCacheTTL = 15 * time.Minute

// Store is the key-value subset the cache needs. Get reports a miss with ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	rdb *goredis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Get returns the stored value for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Set stores value under key for ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CachedClient memoises successful searches. Cache faults fall through to the wrapped client;
// failed searches are never cached.
type CachedClient struct {
	next  Client
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedClient wraps next with a result cache.
func NewCachedClient(next Client, store Store, ttl time.Duration, log *zap.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedClient{next: next, store: store, ttl: ttl, log: log}
}

// Search answers from the cache when possible.
func (c *CachedClient) Search(ctx context.Context, q Query) ([]Passage, error) {
	key, err := cacheKey(q)
	if err != nil {
		return c.next.Search(ctx, q)
	}

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn("retrieval cache read failed", zap.Error(err))
	case ok:
		var passages []Passage
		if err := json.Unmarshal(raw, &passages); err == nil {
			return passages, nil
		}
		c.log.Warn("discarding unreadable retrieval cache entry", zap.String("key", key))
	}

	passages, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(passages); err == nil {
		if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
			c.log.Warn("retrieval cache write failed", zap.Error(err))
		}
	}
	return passages, nil
}

func cacheKey(q Query) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "retrieval:" + hex.EncodeToString(sum[:]), nil
}
