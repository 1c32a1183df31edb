package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigdesk-backend/pkg/redis"
)

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	guard, err := NewIdempotencyGuard(client, time.Hour, "razorpay")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "deleted events can be processed again")

	mr.FastForward(2 * time.Hour)
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "marks expire with the ttl")
}

func TestIdempotencyGuardValidates(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "x")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	_, err = NewIdempotencyGuard(client, -time.Second, "x")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(client, time.Hour, "")
	assert.Error(t, err)

	guard, err := NewIdempotencyGuard(client, time.Hour, "x")
	require.NoError(t, err)
	_, err = guard.CheckAndMark(context.Background(), "")
	assert.Error(t, err)
}
