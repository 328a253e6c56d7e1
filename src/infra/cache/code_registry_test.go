package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"gptuessr/src/infra/config"
	"gptuessr/src/infra/logger"
)

type stubChecker struct {
	exists bool
	err    error
}

func (s stubChecker) LobbyCodeExists(context.Context, string) (bool, error) {
	return s.exists, s.err
}

// unreachable points at a port nothing listens on so every command fails fast.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCodeKey(t *testing.T) {
	assert.Equal(t, "lobby:code:ABC234", codeKey("ABC234"))
}

func TestRegistryTrustsStore(t *testing.T) {
	rdb := unreachable()
	defer rdb.Close()
	ctx := context.Background()

	taken, err := NewCodeRegistry(rdb, stubChecker{exists: true}, time.Hour, logger.Discard()).LobbyCodeExists(ctx, "ABC234")
	assert.NoError(t, err)
	assert.True(t, taken, "persisted codes never reach redis")

	boom := errors.New("db down")
	_, err = NewCodeRegistry(rdb, stubChecker{err: boom}, time.Hour, logger.Discard()).LobbyCodeExists(ctx, "ABC234")
	assert.ErrorIs(t, err, boom)
}

func TestRegistryFallsBackWhenRedisFails(t *testing.T) {
	rdb := unreachable()
	defer rdb.Close()

	reg := NewCodeRegistry(rdb, stubChecker{}, time.Hour, logger.Discard())
	taken, err := reg.LobbyCodeExists(context.Background(), "ABC234")
	assert.NoError(t, err)
	assert.False(t, taken)
	assert.Error(t, reg.Health(context.Background()))
}

func TestNewRedisClientFailsFast(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
