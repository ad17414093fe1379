package cache

import (
	"context"
	"testing"
	"time"

	"dashboard-observer/src/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr
}

func TestRedisRecordCache(t *testing.T) {
	mr := newTestRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisRecordCache(client, "dashboard")
	key := "dashboard:analytics:week:all"

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	record := &models.MAnalyticsRecord{Revenue: models.MRevenueMetrics{Current: 42, Trend: []models.MTrendPoint{{Date: "d", Value: 1}}}}
	record.EnsureShape()
	require.NoError(t, c.Set(ctx, key, record, time.Minute))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record, got)

	t.Run("expires", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		_, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		require.NoError(t, mr.Set(key, "{not json"))
		_, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, mr.Exists(key))
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "dashboard:analytics:year:all", record, time.Minute))
		require.NoError(t, mr.Set("other", "keep"))
		require.NoError(t, c.Invalidate(ctx))
		assert.False(t, mr.Exists("dashboard:analytics:year:all"))
		assert.True(t, mr.Exists("other"))
	})
}

func TestRedisPreferenceStore(t *testing.T) {
	mr := newTestRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisPreferenceStore(client, "dashboard")

	prefs, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.DefaultPreferences(), prefs)

	want := models.MPreferences{DarkMode: true, Timeframe: models.TimeframeYear, LiveMode: false}
	require.NoError(t, store.Save(ctx, want))

	got, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
	assert.True(t, mr.Exists("dashboard:preferences"))
}

func TestMemoryPreferenceStore(t *testing.T) {
	store := NewMemoryPreferenceStore()
	prefs, found, _ := store.Load(context.Background())
	assert.False(t, found)
	assert.Equal(t, models.DefaultPreferences(), prefs)

	prefs.DarkMode = true
	require.NoError(t, store.Save(context.Background(), prefs))
	got, found, _ := store.Load(context.Background())
	assert.True(t, found)
	assert.True(t, got.DarkMode)
}

func TestRateLimiter(t *testing.T) {
	mr := newTestRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	rl := NewRateLimiter(client, 2, time.Minute)

	for i := 0; i < 2; i++ {
		st, err := rl.Allow(ctx, "1.2.3.4:POST:/refresh")
		require.NoError(t, err)
		assert.True(t, st.Allowed)
	}

	st, err := rl.Allow(ctx, "1.2.3.4:POST:/refresh")
	require.NoError(t, err)
	assert.False(t, st.Allowed)
	assert.Equal(t, 0, st.Remaining)

	assert.WithinDuration(t, time.Now().Add(time.Minute), st.ResetAt, 2*time.Second)

	mr.FastForward(2 * time.Minute)
	st, err = rl.Allow(ctx, "1.2.3.4:POST:/refresh")
	require.NoError(t, err)
	assert.True(t, st.Allowed)

	t.Run("key without ttl gets one", func(t *testing.T) {
		require.NoError(t, mr.Set("rl:5.6.7.8:POST:/refresh", "7"))

		st, err := rl.Allow(ctx, "5.6.7.8:POST:/refresh")
		require.NoError(t, err)
		assert.False(t, st.Allowed)
		assert.Equal(t, time.Minute, mr.TTL("rl:5.6.7.8:POST:/refresh"))

		mr.FastForward(2 * time.Minute)
		st, err = rl.Allow(ctx, "5.6.7.8:POST:/refresh")
		require.NoError(t, err)
		assert.True(t, st.Allowed)
	})
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "://bad")
	assert.Error(t, err)
}
