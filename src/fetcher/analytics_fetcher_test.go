package fetcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	records map[string]*models.MAnalyticsRecord
	sets    int
}

func (c *memCache) Get(ctx context.Context, key string) (*models.MAnalyticsRecord, bool, error) {
	r, ok := c.records[key]
	return r.Clone(), ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, record *models.MAnalyticsRecord, ttl time.Duration) error {
	c.sets++
	c.records[key] = record.Clone()
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.records = make(map[string]*models.MAnalyticsRecord)
	return nil
}

func newTestFetcher(api *fakeAPI) (*AnalyticsFetcher, *atomic.Int32) {
	f := NewAnalyticsFetcher(api, nil, nil, logger.NewLogger(nil, "test"))
	var mockCalls atomic.Int32
	f.Mock = func() *models.MAnalyticsRecord {
		mockCalls.Add(1)
		return MockDataset()
	}
	return f, &mockCalls
}

func TestFetchPrimarySuccess(t *testing.T) {
	api := newFakeAPI()
	f, mockCalls := newTestFetcher(api)

	res := f.Fetch(context.Background(), models.TimeframeWeek, nil, false)

	require.NotNil(t, res.Record)
	assert.Equal(t, models.TierPrimary, res.Tier)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1000.0, res.Record.Revenue.Current)
	assert.Equal(t, 7.0, res.Record.Users.Current)
	assert.Equal(t, 5.0, res.Record.Orders.Current)
	assert.Equal(t, 0, api.count("fallback"))
	assert.Equal(t, int32(0), mockCalls.Load())

	for _, op := range []string{"sales", "users", "products", "orders", "retention"} {
		assert.Equal(t, 1, api.count(op), op)
	}
}

func TestFetchFallsBackOnAnyPrimaryFailure(t *testing.T) {
	for _, op := range []string{"sales", "users", "products", "orders", "retention"} {
		t.Run(op, func(t *testing.T) {
			api := newFakeAPI()
			api.failOp = op
			f, mockCalls := newTestFetcher(api)

			res := f.Fetch(context.Background(), models.TimeframeMonth, nil, false)

			assert.Equal(t, 1, api.count("fallback"))
			assert.Equal(t, models.TierFallback, res.Tier)
			assert.Equal(t, 777.0, res.Record.Revenue.Current)
			assert.NotNil(t, res.Record.Users.Trend)
			assert.ErrorIs(t, res.Err, errBackend)
			assert.Equal(t, int32(0), mockCalls.Load())
		})
	}
}

func TestFetchServesMockWhenFallbackFails(t *testing.T) {
	api := newFakeAPI()
	api.failOp = "*"
	api.failFallback = true
	f, mockCalls := newTestFetcher(api)

	res := f.Fetch(context.Background(), models.TimeframeYear, nil, false)

	assert.Equal(t, models.TierMock, res.Tier)
	assert.Equal(t, MockDataset(), res.Record)
	assert.Equal(t, 2450000.0, res.Record.Revenue.Current)
	assert.Error(t, res.Err)
	assert.Equal(t, int32(1), mockCalls.Load())
}

func TestMockDatasetIsCopied(t *testing.T) {
	a := MockDataset()
	a.Revenue.Trend[0].Value = -1
	a.Products.TopSelling = nil

	b := MockDataset()
	assert.Equal(t, 180000.0, b.Revenue.Trend[0].Value)
	assert.Len(t, b.Products.TopSelling, 3)
}

func TestFetchCancelledSkipsFallback(t *testing.T) {
	api := newFakeAPI()
	api.failOp = "*"
	f, mockCalls := newTestFetcher(api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.Fetch(ctx, models.TimeframeWeek, nil, false)

	assert.Nil(t, res.Record)
	assert.Equal(t, models.TierNone, res.Tier)
	assert.Equal(t, 0, api.count("fallback"))
	assert.Equal(t, int32(0), mockCalls.Load())
}

func TestFetchUsesCache(t *testing.T) {
	api := newFakeAPI()
	f, _ := newTestFetcher(api)
	cache := &memCache{records: make(map[string]*models.MAnalyticsRecord)}
	f.Cache = cache
	f.CacheTTL = time.Minute

	dr := &models.MDateRange{Start: "2024-01-01", End: "2024-01-31"}

	first := f.Fetch(context.Background(), models.TimeframeWeek, dr, false)
	require.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.records, "dashboard:analytics:week:2024-01-01..2024-01-31")

	second := f.Fetch(context.Background(), models.TimeframeWeek, dr, false)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, 1, api.count("sales"))

	t.Run("force bypasses cache", func(t *testing.T) {
		forced := f.Fetch(context.Background(), models.TimeframeWeek, dr, true)
		assert.False(t, forced.Cached)
		assert.Equal(t, 2, api.count("sales"))
	})

	t.Run("fallback results are not cached", func(t *testing.T) {
		api.failOp = "users"
		f.Fetch(context.Background(), models.TimeframeYear, nil, false)
		assert.NotContains(t, cache.records, "dashboard:analytics:year:all")
	})
}
