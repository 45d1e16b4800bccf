package matrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache stores fetched matrices keyed by location set and dimension.
// Implementations must be safe for concurrent use. Cache faults are
// soft: a miss is returned instead of an error.
type Cache interface {
	Get(ctx context.Context, key string) ([][]int, bool)
	Set(ctx context.Context, key string, m [][]int)
}

func cacheKey(locations []string, dim Dimension) string {
	h := sha256.New()
	h.Write([]byte(dim))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(locations, "\x00")))
	return "matrix:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache caches matrices in Redis with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects using a redis URL (redis://host:port/db).
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([][]int, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var m [][]int
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

func (c *RedisCache) Set(ctx context.Context, key string, m [][]int) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, data, c.ttl).Err()
}
