package cache

import (
	"context"
	"testing"

	"feedline/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis("redis://" + mr.Addr() + "/0")
	t.Cleanup(func() { _ = Close() })

	require.NotNil(t, GetClient())
	require.NoError(t, GetClient().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestInitRedis_UnreachableLeavesNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())

	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}

func TestMetricsHook_CountsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr"))

	require.NoError(t, rdb.Set(context.Background(), "word", "abc", 0).Err())
	require.Error(t, rdb.Incr(context.Background(), "word").Err())

	_, err = rdb.Get(context.Background(), "missing").Result()
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr")))
	assert.Zero(t, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")), "redis.Nil is not an error")
}
