package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkvault-app/linkvault-back/internal/config"
)

type (
	// IdentityCache fronts RemoteResolver.Current so each request does not
	// cost a provider round-trip. Entries are short-lived; provider-side
	// revocation is only delayed by the TTL, never missed.
	IdentityCache interface {
		Get(ctx context.Context, credential string) (*Identity, bool)
		Set(ctx context.Context, credential string, identity *Identity)
		Invalidate(ctx context.Context, credential string)
	}

	redisCache struct {
		rdb    *redis.Client
		ttl    time.Duration
		logger *zap.SugaredLogger
	}
)

// NewIdentityCache wires the redis-backed cache when REDIS_ADDR is set and
// returns nil otherwise; RemoteResolver treats a nil cache as "always
// miss". The connection is verified on startup and closed on shutdown.
func NewIdentityCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.SugaredLogger) IdentityCache {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing redis connection.")
			return rdb.Close()
		},
	})

	return &redisCache{
		rdb:    rdb,
		ttl:    cfg.SessionCacheTTL,
		logger: logger,
	}
}

func (c *redisCache) Get(ctx context.Context, credential string) (*Identity, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(credential)).Bytes()
	if err != nil {
		return nil, false
	}
	identity := Identity{}
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, false
	}
	return &identity, true
}

// Set is best effort; a cache write failure only costs a provider lookup
// on the next request.
func (c *redisCache) Set(ctx context.Context, credential string, identity *Identity) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(credential), raw, c.ttl).Err(); err != nil {
		c.logger.Warnw("session cache write failed", "error", err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context, credential string) {
	if err := c.rdb.Del(ctx, cacheKey(credential)).Err(); err != nil {
		c.logger.Warnw("session cache invalidate failed", "error", err)
	}
}

// Credentials are bearer tokens; only a digest of them is used as the key.
func cacheKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "session:" + hex.EncodeToString(sum[:])
}
