// Package resultcache stores merged analyses keyed by document content so an
// identical upload is answered without another round of AI calls.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/lessonlens/internal/analysis"
)

const keyPrefix = "lessonlens:analysis:"

// Cache looks up and stores merged analyses.
type Cache interface {
	Get(ctx context.Context, key string) (*analysis.Merged, bool, error)
	Put(ctx context.Context, key string, merged analysis.Merged) error
}

// Key builds a cache key from the parts that determine an analysis result:
// typically provider, model, chunk size and content hash.
func Key(parts ...string) string {
	return keyPrefix + strings.Join(parts, ":")
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache keeps JSON-encoded results in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*analysis.Merged, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	merged, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return merged, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, merged analysis.Merged) error {
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// decode restores a stored result, normalizing null slices to empty ones.
func decode(data []byte) (*analysis.Merged, error) {
	var merged analysis.Merged
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	if merged.KeyPoints == nil {
		merged.KeyPoints = []string{}
	}
	if merged.Quiz == nil {
		merged.Quiz = []analysis.QuizQuestion{}
	}
	return &merged, nil
}
