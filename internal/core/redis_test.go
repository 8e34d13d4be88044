// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), config.RedisConfig{
		URL:      "redis://" + mr.Addr() + "/0",
		PoolSize: 2,
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	assert.NoError(t, r.Ping(context.Background()))
	assert.NotNil(t, r.PoolStats())
}

func TestNewRedisToleratesUnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	r, err := NewRedis(context.Background(), config.RedisConfig{URL: "redis://" + addr}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	assert.Error(t, r.Ping(context.Background()))
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "not a url"}, slog.Default())
	assert.Error(t, err)
}
