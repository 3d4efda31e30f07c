package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fuckdb/fuckdb-backend/internal/logger"
)

// VersionCache memoizes the {project, version} -> document id mapping. The
// mapping is immutable (a document is never reassigned to another version),
// so the only invalidation needed is on version delete. A nil cache is a
// valid no-op.
type VersionCache interface {
	GetMongoID(ctx context.Context, projectID string, version int) (string, bool)
	SetMongoID(ctx context.Context, projectID string, version int, mongoID string)
	Invalidate(ctx context.Context, projectID string, version int)
	Close() error
}

type versionCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewVersionCache connects to Redis using REDIS_ADDR. Returns an error when
// the variable is unset; callers treat that as "run without a cache".
func NewVersionCache(log *logger.Logger) (VersionCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
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

	return &versionCache{
		log: log.With("service", "RedisVersionCache"),
		rdb: rdb,
		ttl: 24 * time.Hour,
	}, nil
}

func cacheKey(projectID string, version int) string {
	return fmt.Sprintf("fuckdb:version:%s:%d", projectID, version)
}

func (c *versionCache) GetMongoID(ctx context.Context, projectID string, version int) (string, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(projectID, version)).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("Version cache read failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *versionCache) SetMongoID(ctx context.Context, projectID string, version int, mongoID string) {
	if err := c.rdb.Set(ctx, cacheKey(projectID, version), mongoID, c.ttl).Err(); err != nil {
		c.log.Debug("Version cache write failed", "error", err)
	}
}

func (c *versionCache) Invalidate(ctx context.Context, projectID string, version int) {
	if err := c.rdb.Del(ctx, cacheKey(projectID, version)).Err(); err != nil {
		c.log.Debug("Version cache invalidate failed", "error", err)
	}
}

func (c *versionCache) Close() error {
	return c.rdb.Close()
}
