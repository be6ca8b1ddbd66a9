package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// Namespace prefixes every analytics key.
const Namespace = "kpi:"

// Cache stores serialized analytics responses. Failures are logged and reported
// as misses; callers never see a cache error.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
	Flush(ctx context.Context) int
	Close() error
}

// Key is kpi:{family}:{op}:{sha1 of the JSON-encoded request}.
func Key(family domainfacts.Family, op string, req any) string {
	raw, err := json.Marshal(req)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", req))
	}
	sum := sha1.Sum(raw)
	return fmt.Sprintf("%s%s:%s:%s", Namespace, family.Slug(), op, hex.EncodeToString(sum[:]))
}

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedis(addr string, ttl time.Duration, log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{
		log: log.With("service", "RedisCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false
	}
	if err != nil {
		c.log.Warn("Cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("Cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *redisCache) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Flush drops every key in the namespace and returns how many were removed.
func (c *redisCache) Flush(ctx context.Context) int {
	removed := 0
	iter := c.rdb.Scan(ctx, 0, Namespace+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	drop := func() {
		if len(batch) == 0 {
			return
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			c.log.Warn("Cache flush failed", "error", err)
		}
		removed += int(n)
		batch = batch[:0]
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			drop()
		}
	}
	drop()
	if err := iter.Err(); err != nil {
		c.log.Warn("Cache scan failed", "error", err)
	}
	return removed
}

func (c *redisCache) Close() error { return c.rdb.Close() }

type nopCache struct{}

// Nop is used when no cache is configured.
func Nop() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string, any) bool { return false }
func (nopCache) Set(context.Context, string, any)      {}
func (nopCache) Flush(context.Context) int             { return 0 }
func (nopCache) Close() error                          { return nil }
