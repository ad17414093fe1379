package fetcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"dashboard-observer/src/models"
)

var errBackend = errors.New("backend down")

// fakeAPI answers with canonical payloads and counts calls per operation.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	failOp        string // primary op to fail, "*" for all
	failFallback  bool
	fallback      *models.MAnalyticsRecord
	realtime      *models.MRealtimePayload
	realtimeCalls atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (a *fakeAPI) hit(op string) error {
	a.mu.Lock()
	a.calls[op]++
	a.mu.Unlock()
	if a.failOp == op || a.failOp == "*" {
		return errBackend
	}
	return nil
}

func (a *fakeAPI) count(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[op]
}

func (a *fakeAPI) GetSalesTrends(ctx context.Context, granularity string, timespan int, dr *models.MDateRange) (interface{}, error) {
	if err := a.hit("sales"); err != nil {
		return nil, err
	}
	return map[string]interface{}{"totalRevenue": 1000.0, "growthRate": 2.0, "granularity": granularity}, nil
}

func (a *fakeAPI) GetUserGrowth(ctx context.Context, days int, dr *models.MDateRange) (interface{}, error) {
	if err := a.hit("users"); err != nil {
		return nil, err
	}
	return []interface{}{
		map[string]interface{}{"date": "d1", "totalUsers": float64(days), "newUsers": 1.0},
	}, nil
}

func (a *fakeAPI) GetProductPerformance(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	if err := a.hit("products"); err != nil {
		return nil, err
	}
	return map[string]interface{}{"totalViews": 10.0}, nil
}

func (a *fakeAPI) GetOrderStatusDistribution(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	if err := a.hit("orders"); err != nil {
		return nil, err
	}
	return map[string]interface{}{"total": 5.0}, nil
}

func (a *fakeAPI) GetCustomerRetention(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	if err := a.hit("retention"); err != nil {
		return nil, err
	}
	return map[string]interface{}{"rate": 50.0}, nil
}

func (a *fakeAPI) GetDashboardAnalytics(ctx context.Context, timeframe models.MTimeframe) (*models.MAnalyticsRecord, error) {
	a.mu.Lock()
	a.calls["fallback"]++
	a.mu.Unlock()
	if a.failFallback {
		return nil, errBackend
	}
	if a.fallback != nil {
		return a.fallback.Clone(), nil
	}
	return &models.MAnalyticsRecord{Revenue: models.MRevenueMetrics{Current: 777}}, nil
}

func (a *fakeAPI) GetRealtimeMetrics(ctx context.Context) (*models.MRealtimePayload, error) {
	a.realtimeCalls.Add(1)
	return a.realtime, nil
}
