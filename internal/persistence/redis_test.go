package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestRedisPing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r := NewRedis(config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer r.Close()
	assert.NoError(t, r.Ping(context.Background()))

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestDisabledRedisPing(t *testing.T) {
	disabled := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.False(t, disabled.Enabled())
	assert.ErrorIs(t, disabled.Ping(context.Background()), ErrRedisDisabled)

	var r *Redis
	assert.Error(t, r.Ping(context.Background()))
}
