// Package cache holds the optional Redis layer shared between instances.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gptuessr/src/core/ports"
	"gptuessr/src/infra/config"
)

const codeKeyPrefix = "lobby:code:"

var _ ports.CodeChecker = (*CodeRegistry)(nil)

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// CodeRegistry reserves lobby codes in Redis so two instances sharing one
// database never hand out the same code between check and insert.
type CodeRegistry struct {
	rdb   *redis.Client
	inner ports.CodeChecker
	ttl   time.Duration
	log   *slog.Logger
}

// NewCodeRegistry wraps inner, which stays the source of truth for codes
// already persisted.
func NewCodeRegistry(rdb *redis.Client, inner ports.CodeChecker, ttl time.Duration, log *slog.Logger) *CodeRegistry {
	return &CodeRegistry{rdb: rdb, inner: inner, ttl: ttl, log: log}
}

// LobbyCodeExists reports a code as taken when it is persisted or already
// reserved. A false result means the caller now holds the reservation.
func (r *CodeRegistry) LobbyCodeExists(ctx context.Context, code string) (bool, error) {
	exists, err := r.inner.LobbyCodeExists(ctx, code)
	if err != nil || exists {
		return exists, err
	}

	reserved, err := r.rdb.SetNX(ctx, codeKey(code), 1, r.ttl).Result()
	if err != nil {
		// Redis is an optimisation on top of the unique index; carry on without it.
		r.log.Warn("code reservation failed, falling back to store", "code", code, "error", err)
		return false, nil
	}
	return !reserved, nil
}

func (r *CodeRegistry) Health(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func codeKey(code string) string {
	return codeKeyPrefix + code
}
