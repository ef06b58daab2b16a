package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/cache"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestRedisCache(t *testing.T) {
	_, client := newMiniRedis(t)
	exerciseCache(t, cache.NewRedisCache(client, "echo:test:"))
}

func TestRedisCacheKeyLayout(t *testing.T) {
	server, client := newMiniRedis(t)
	ctx := context.Background()
	c := cache.NewRedisCache(client, "")

	require.NoError(t, c.Set(ctx, "Greet", "hi"))
	assert.True(t, server.Exists("echo:result:Greet"))

	raw, err := server.Get("echo:result:Greet")
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, raw)

	require.NoError(t, c.Set(ctx, "Other", 1))
	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Greet", "Other"}, keys)
}

func TestRedisCacheUnavailable(t *testing.T) {
	server, client := newMiniRedis(t)
	c := cache.NewRedisCache(client, "")
	server.Close()

	_, _, err := c.Get(context.Background(), "Greet")
	assert.Error(t, err)
}

func TestRedisCacheBacksExecutionContext(t *testing.T) {
	_, client := newMiniRedis(t)
	ctx := context.Background()

	reg := api.NewPlan().
		Func("Double", func(ctx context.Context, args []any) (any, error) {
			return args[0].(int) * 2, nil
		}).
		MustBuild()

	ec := api.NewExecutionContext(api.WithCache(cache.NewRedisCache(client, "echo:ec:")))
	require.NoError(t, api.New("Double", 21, reg).Execute(ctx, ec))

	n, ok, err := cache.Load[int](ctx, ec.Cache(), "Double")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, n)
}
