package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/models"
)

// KeyPrefix scopes every key this cache writes, so stats and flushes never
// touch unrelated data in a shared Redis database.
const KeyPrefix = "storefront:"

// ErrUnavailable is returned when the cache is not connected.
var ErrUnavailable = errors.New("redis client not available")

// RedisCache stores Catalog Service responses as JSON. A nil *RedisCache is
// valid and behaves as an always-missing cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects to redisURL and pings it. It returns nil when Redis
// cannot be reached; callers then run uncached.
func NewRedisCache(ctx context.Context, redisURL string, db int, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("Failed to parse Redis URL", zap.Error(err))
		return nil
	}
	opt.DB = db

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed, running without cache", zap.Error(err))
		_ = client.Close()
		return nil
	}

	logger.Info("Redis connected",
		zap.Int("db", db),
		zap.Duration("ttl", ttl))

	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get decodes the value stored under key into v. It reports false on a miss.
func (r *RedisCache) Get(ctx context.Context, key string, v any) (bool, error) {
	if !r.IsAvailable() {
		return false, ErrUnavailable
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key for the configured TTL.
func (r *RedisCache) Set(ctx context.Context, key string, v any) error {
	if !r.IsAvailable() {
		return ErrUnavailable
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// ListingKey identifies one upstream product listing request. Fields are
// written in a fixed order so equal queries share a key.
func ListingKey(q models.ListQuery) string {
	var b strings.Builder
	b.WriteString(KeyPrefix + "products")
	for _, part := range []struct{ name, value string }{
		{"g", strings.ToLower(q.Gender)},
		{"c", strings.ToLower(q.Category)},
		{"k", strings.ToLower(strings.TrimSpace(q.Keyword))},
		{"s", q.OnSale},
	} {
		if part.value != "" {
			b.WriteString(":" + part.name + "=" + part.value)
		}
	}
	if q.Page > 0 {
		b.WriteString(":p" + strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		b.WriteString(":l" + strconv.Itoa(q.Limit))
	}
	return b.String()
}

// ProductKey identifies one product detail request.
func ProductKey(id string) string {
	return KeyPrefix + "product:" + id
}

func (r *RedisCache) Close() error {
	if !r.IsAvailable() {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache) IsAvailable() bool {
	return r != nil && r.client != nil
}

func (r *RedisCache) GetStats(ctx context.Context) map[string]any {
	if !r.IsAvailable() {
		return map[string]any{
			"status": "unavailable",
		}
	}

	return map[string]any{
		"status":      "connected",
		"ttl_seconds": int(r.ttl.Seconds()),
		"keys":        len(r.GetAllKeys(ctx)),
		"memory_info": r.client.Info(ctx, "memory").Val(),
	}
}

func (r *RedisCache) GetAllKeys(ctx context.Context) []string {
	if !r.IsAvailable() {
		return []string{}
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("Failed to scan cache keys", zap.Error(err))
		return []string{}
	}
	if keys == nil {
		keys = []string{}
	}
	return keys
}

// FlushCache removes every key this cache wrote.
func (r *RedisCache) FlushCache(ctx context.Context) (int, error) {
	if !r.IsAvailable() {
		return 0, ErrUnavailable
	}

	keys := r.GetAllKeys(ctx)
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	return int(n), err
}

func (r *RedisCache) GetKeyTTL(ctx context.Context, key string) time.Duration {
	if !r.IsAvailable() {
		return 0
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0
	}
	return ttl
}
