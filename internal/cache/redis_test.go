package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobot/store/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.Redis{Address: mr.Addr()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cache, err := InitServer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, "user:1", expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetCorruptedValue(t *testing.T) {
	cache, mr := setupTestCache(t)
	require.NoError(t, mr.Set("broken", "{not json"))

	var out testStruct
	found, err := cache.Get(context.Background(), "broken", &out)
	require.Error(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "ttl", testStruct{Name: "Bob"}, time.Second))
	mr.FastForward(2 * time.Second)

	var out testStruct
	found, err := cache.Get(ctx, "ttl", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserChangedInvalidatesStats(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, StatsKey(42), testStruct{Name: "stats"}, time.Minute))
	require.NoError(t, cache.Set(ctx, StatsKey(43), testStruct{Name: "other"}, time.Minute))

	cache.UserChanged(ctx, 42)

	assert.False(t, mr.Exists("stats:42"))
	assert.True(t, mr.Exists("stats:43"))
}

func TestInitServer_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = InitServer(context.Background(), config.Redis{Address: addr, DialTimeout: time.Second}, nil)
	assert.Error(t, err)
}

func TestUserChangedBumpsGeneration(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, StatsGenerationKey(7))
	require.NoError(t, err)
	assert.Zero(t, gen)

	cache.UserChanged(ctx, 7)
	cache.UserChanged(ctx, 7)

	gen, err = cache.Generation(ctx, StatsGenerationKey(7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestSetIfGeneration(t *testing.T) {
	tests := []struct {
		name      string
		between   func(c *Cache)
		wantSaved bool
	}{
		{
			name:      "unchanged generation is stored",
			between:   func(_ *Cache) {},
			wantSaved: true,
		},
		{
			name:      "invalidation during read is not overwritten",
			between:   func(c *Cache) { c.UserChanged(context.Background(), 1) },
			wantSaved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, mr := setupTestCache(t)
			ctx := context.Background()

			gen, err := cache.Generation(ctx, StatsGenerationKey(1))
			require.NoError(t, err)

			tt.between(cache)

			saved, err := cache.SetIfGeneration(ctx, StatsKey(1), StatsGenerationKey(1), gen,
				testStruct{Name: "stale"}, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, saved)
			assert.Equal(t, tt.wantSaved, mr.Exists(StatsKey(1)))
		})
	}
}
