package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/console/internal/infrastructure/config"
)

// redisStore is the subset of the Redis client the cache needs
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache persists sessions from an underlying source in Redis so that
// successive console invocations share one login. Redis failures degrade to
// the underlying source.
type RedisCache struct {
	store  redisStore
	next   SessionSource
	key    string
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     2,
		MaxRetries:   1,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for token cache: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps next. The session is stored under keyPrefix+"session:"+account.
func NewRedisCache(store redisStore, next SessionSource, keyPrefix, account string, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		store:  store,
		next:   next,
		key:    keyPrefix + "session:" + account,
		logger: logger,
		now:    time.Now,
	}
}

// Token implements TokenSource
func (c *RedisCache) Token(ctx context.Context) (string, error) {
	sess, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Session returns the cached session or obtains and stores a new one.
func (c *RedisCache) Session(ctx context.Context) (Session, error) {
	if sess, ok := c.load(ctx); ok {
		return sess, nil
	}

	sess, err := c.next.Session(ctx)
	if err != nil {
		return Session{}, err
	}

	c.save(ctx, sess)
	return sess, nil
}

// Invalidate removes the cached session from Redis and the underlying source.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.store.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to drop cached session: %w", err)
	}
	if inv, ok := c.next.(interface{ Invalidate(context.Context) error }); ok {
		return inv.Invalidate(ctx)
	}
	return nil
}

func (c *RedisCache) load(ctx context.Context) (Session, bool) {
	raw, err := c.store.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, false
	}
	if err != nil {
		c.logger.Warn("token cache read failed", zap.Error(err))
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		c.logger.Warn("token cache entry corrupt", zap.Error(err))
		return Session{}, false
	}
	if !sess.Valid(c.now()) {
		return Session{}, false
	}
	return sess, true
}

func (c *RedisCache) save(ctx context.Context, sess Session) {
	ttl := sess.TTL(c.now())
	if ttl <= 0 && !sess.ExpiresAt.IsZero() {
		return
	}

	data, err := json.Marshal(sess)
	if err != nil {
		c.logger.Warn("token cache encode failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.key, data, ttl).Err(); err != nil {
		c.logger.Warn("token cache write failed", zap.Error(err))
	}
}
