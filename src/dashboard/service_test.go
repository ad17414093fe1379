package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dashboard-observer/src/cache"
	"dashboard-observer/src/fetcher"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
	"dashboard-observer/src/poller"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedAPI answers every call immediately except sales trends for the gated
// granularity, which blocks until released. It ignores cancellation so a stale
// run can still resolve successfully.
type gatedAPI struct {
	gateGranularity string
	started         chan struct{}
	release         chan struct{}
	salesCalls      atomic.Int32
	fail            atomic.Bool
}

func newGatedAPI(granularity string) *gatedAPI {
	return &gatedAPI{
		gateGranularity: granularity,
		started:         make(chan struct{}, 1),
		release:         make(chan struct{}),
	}
}

var revenueByGranularity = map[string]float64{"daily": 7, "weekly": 30, "monthly": 365}

func (a *gatedAPI) GetSalesTrends(ctx context.Context, granularity string, timespan int, dr *models.MDateRange) (interface{}, error) {
	a.salesCalls.Add(1)
	if granularity == a.gateGranularity {
		a.started <- struct{}{}
		<-a.release
	}
	if a.fail.Load() {
		return nil, errors.New("sales trends down")
	}
	return map[string]interface{}{"totalRevenue": revenueByGranularity[granularity]}, nil
}

func (a *gatedAPI) GetUserGrowth(ctx context.Context, days int, dr *models.MDateRange) (interface{}, error) {
	return map[string]interface{}{"totalUsers": float64(days)}, nil
}

func (a *gatedAPI) GetProductPerformance(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return []interface{}{}, nil
}

func (a *gatedAPI) GetOrderStatusDistribution(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return map[string]interface{}{"total": 3.0}, nil
}

func (a *gatedAPI) GetCustomerRetention(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return map[string]interface{}{"rate": 60.0}, nil
}

func (a *gatedAPI) GetDashboardAnalytics(ctx context.Context, timeframe models.MTimeframe) (*models.MAnalyticsRecord, error) {
	return nil, errors.New("fallback down")
}

func (a *gatedAPI) GetRealtimeMetrics(ctx context.Context) (*models.MRealtimePayload, error) {
	return &models.MRealtimePayload{}, nil
}

type recordingExchanger struct {
	mu       sync.Mutex
	messages []*models.MPushMessage
}

func (r *recordingExchanger) Broadcast(msg *models.MPushMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingExchanger) Start() error { return nil }
func (r *recordingExchanger) Stop() error  { return nil }

func (r *recordingExchanger) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Type == kind {
			n++
		}
	}
	return n
}

func newTestService(api *gatedAPI, policy string) *Service {
	cfg := &models.MConfig{Analytics: models.MAnalyticsConfig{
		DefaultTimeframe:       "month",
		SupersedePolicy:        policy,
		RefreshIntervalSeconds: 300,
		MaxChartPoints:         50,
	}}
	log := logger.NewLogger(nil, "test")
	f := fetcher.NewAnalyticsFetcher(api, nil, cfg, log)
	s := NewService(cfg, f, nil, log)
	s.Clock = clock.NewMock()
	return s
}

// runStaleThenFresh starts a week run that blocks, completes a year run, then
// lets the week run resolve last.
func runStaleThenFresh(t *testing.T, s *Service, api *gatedAPI) (stale, fresh models.MAnalyticsState) {
	t.Helper()

	done := make(chan models.MAnalyticsState, 1)
	go func() { done <- s.FetchAnalytics(models.TimeframeWeek, nil, false) }()

	select {
	case <-api.started:
	case <-time.After(time.Second):
		t.Fatal("week run never started")
	}

	fresh = s.FetchAnalytics(models.TimeframeYear, nil, false)
	close(api.release)

	select {
	case stale = <-done:
	case <-time.After(time.Second):
		t.Fatal("week run never resolved")
	}
	return stale, fresh
}

func TestGenerationPolicyKeepsNewestRun(t *testing.T) {
	api := newGatedAPI("daily")
	s := newTestService(api, PolicyGeneration)

	_, fresh := runStaleThenFresh(t, s, api)
	assert.Equal(t, models.TimeframeYear, fresh.Timeframe)
	assert.True(t, fresh.Loading, "older run still in flight")

	state := s.AnalyticsState()
	require.NotNil(t, state.Record)
	assert.Equal(t, models.TimeframeYear, state.Timeframe)
	assert.Equal(t, 365.0, state.Record.Revenue.Current)
	assert.Equal(t, uint64(2), state.Generation)
	assert.False(t, state.Loading)
}

func TestLastWritePolicyKeepsLastResolved(t *testing.T) {
	api := newGatedAPI("daily")
	s := newTestService(api, PolicyLastWrite)

	stale, _ := runStaleThenFresh(t, s, api)
	assert.Equal(t, models.TimeframeWeek, stale.Timeframe)

	state := s.AnalyticsState()
	require.NotNil(t, state.Record)
	assert.Equal(t, models.TimeframeWeek, state.Timeframe)
	assert.Equal(t, 7.0, state.Record.Revenue.Current)
	assert.Equal(t, uint64(1), state.Generation)
	assert.False(t, state.Loading)
}

func TestFetchAnalyticsPublishesAndCarriesAdvisoryError(t *testing.T) {
	api := newGatedAPI("")
	s := newTestService(api, PolicyGeneration)
	ex := &recordingExchanger{}
	s.AddExchanger(ex)

	state := s.FetchAnalytics(models.TimeframeMonth, nil, false)
	assert.Equal(t, models.TierPrimary, state.Tier)
	assert.Empty(t, state.Error)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, 1, ex.count(models.MessageTypeAnalytics))

	api.fail.Store(true)
	state = s.FetchAnalytics(models.TimeframeMonth, nil, true)
	assert.Equal(t, models.TierMock, state.Tier)
	assert.Contains(t, state.Error, "sales trends down")
	assert.Equal(t, 2450000.0, state.Record.Revenue.Current)
	assert.False(t, state.Loading)
	assert.Equal(t, 2, ex.count(models.MessageTypeAnalytics))
}

func TestSetTimeframeRunsOnlyOnChange(t *testing.T) {
	api := newGatedAPI("")
	s := newTestService(api, PolicyGeneration)

	s.SetTimeframe(models.TimeframeWeek)
	assert.Equal(t, int32(1), api.salesCalls.Load())

	s.SetTimeframe(models.TimeframeWeek)
	assert.Equal(t, int32(1), api.salesCalls.Load())

	state := s.SetTimeframe(models.TimeframeYear)
	assert.Equal(t, int32(2), api.salesCalls.Load())
	assert.Equal(t, 365.0, state.Record.Revenue.Current)
}

func TestSetDateRangeValidates(t *testing.T) {
	api := newGatedAPI("")
	s := newTestService(api, PolicyGeneration)

	_, err := s.SetDateRange(&models.MDateRange{Start: "2024-01-01"})
	assert.Error(t, err)

	state, err := s.SetDateRange(&models.MDateRange{Start: "2024-01-01", End: "2024-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01..2024-01-31", state.DateRange.Key())
}

func TestSchedulerRefreshesOnInterval(t *testing.T) {
	api := newGatedAPI("")
	s := newTestService(api, PolicyGeneration)
	mock := s.Clock.(*clock.Mock)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return api.salesCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	mock.Add(5 * time.Minute)
	assert.Eventually(t, func() bool { return api.salesCalls.Load() == 2 }, time.Second, 5*time.Millisecond)

	mock.Add(4 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), api.salesCalls.Load())

	assert.Error(t, s.Start(context.Background()))
}

type snapshotStorage struct {
	snapshot *models.MAnalyticsState
	err      error
	saved    atomic.Int32
}

func (s *snapshotStorage) Initialize() error { return nil }

func (s *snapshotStorage) SaveAnalyticsSnapshot(state *models.MAnalyticsState) error {
	s.saved.Add(1)
	return s.err
}

func (s *snapshotStorage) LatestAnalyticsSnapshot(tf models.MTimeframe) (*models.MAnalyticsState, error) {
	if s.snapshot == nil || s.snapshot.Timeframe != tf {
		return nil, s.err
	}
	return s.snapshot, s.err
}

func (s *snapshotStorage) SaveRealtimeSample(sample models.MRealtimeSample) error { return nil }

func (s *snapshotStorage) RecentRealtimeSamples(limit int) ([]models.MRealtimeSample, error) {
	return nil, nil
}

func (s *snapshotStorage) CleanupOldData() error { return nil }

func (s *snapshotStorage) Close() error { return nil }

func TestRestoreSnapshot(t *testing.T) {
	stored := &models.MAnalyticsState{
		Record:    &models.MAnalyticsRecord{Revenue: models.MRevenueMetrics{Current: 99}},
		Tier:      models.TierFallback,
		Timeframe: models.TimeframeMonth,
		RunID:     "stored-run",
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("matching timeframe", func(t *testing.T) {
		s := newTestService(newGatedAPI(""), PolicyGeneration)
		s.Storage = &snapshotStorage{snapshot: stored}

		s.restoreSnapshot()
		state := s.AnalyticsState()
		require.NotNil(t, state.Record)
		assert.Equal(t, 99.0, state.Record.Revenue.Current)
		assert.Equal(t, models.TierFallback, state.Tier)
		assert.Equal(t, "stored-run", state.RunID)
		assert.True(t, state.Cached)
	})

	t.Run("other timeframe", func(t *testing.T) {
		s := newTestService(newGatedAPI(""), PolicyGeneration)
		s.SetTimeframe(models.TimeframeYear)
		before := s.AnalyticsState()

		s.Storage = &snapshotStorage{snapshot: stored}
		s.restoreSnapshot()
		assert.Equal(t, before.RunID, s.AnalyticsState().RunID)
	})

	t.Run("storage error", func(t *testing.T) {
		s := newTestService(newGatedAPI(""), PolicyGeneration)
		s.Storage = &snapshotStorage{err: errors.New("disk gone")}

		s.restoreSnapshot()
		assert.Nil(t, s.AnalyticsState().Record)
		assert.Equal(t, 1, s.ErrorCount())
	})
}

func TestPersistResetsErrorCount(t *testing.T) {
	store := &snapshotStorage{err: errors.New("disk full")}
	s := newTestService(newGatedAPI(""), PolicyGeneration)
	s.Storage = store

	s.FetchAnalytics(models.TimeframeMonth, nil, false)
	assert.Equal(t, 1, s.ErrorCount())

	store.err = nil
	s.FetchAnalytics(models.TimeframeMonth, nil, true)
	assert.Equal(t, int32(2), store.saved.Load())
	assert.Zero(t, s.ErrorCount())
}

// countingRealtime records realtime requests.
type countingRealtime struct {
	calls atomic.Int32
}

func (c *countingRealtime) GetRealtimeMetrics(ctx context.Context) (*models.MRealtimePayload, error) {
	c.calls.Add(1)
	return &models.MRealtimePayload{}, nil
}

func newServiceWithPoller(t *testing.T, tf string, live bool) (*Service, *countingRealtime, *clock.Mock) {
	t.Helper()
	cfg := &models.MConfig{
		Analytics: models.MAnalyticsConfig{
			DefaultTimeframe:       tf,
			SupersedePolicy:        PolicyGeneration,
			RefreshIntervalSeconds: 300,
			MaxChartPoints:         50,
		},
		Realtime: models.MRealtimeConfig{LiveMode: live, PollIntervalSeconds: 30, HistorySize: 10},
	}
	log := logger.NewLogger(nil, "test")
	mock := clock.NewMock()

	rt := &countingRealtime{}
	p := poller.NewRealtimePoller(rt, cfg, log)
	p.Clock = mock

	f := fetcher.NewAnalyticsFetcher(newGatedAPI(""), nil, cfg, log)
	s := NewService(cfg, f, p, log)
	s.Clock = mock
	return s, rt, mock
}

func TestStartKeepsConfiguredModeWithoutSavedPreferences(t *testing.T) {
	t.Run("nothing saved", func(t *testing.T) {
		s, rt, mock := newServiceWithPoller(t, "week", false)
		s.Preferences = cache.NewMemoryPreferenceStore()

		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		assert.Eventually(t, func() bool { return s.AnalyticsState().Record != nil }, time.Second, 5*time.Millisecond)
		assert.Equal(t, models.TimeframeWeek, s.AnalyticsState().Timeframe)
		assert.False(t, s.RealtimeState().LiveMode)

		mock.Add(90 * time.Second)
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, rt.calls.Load())

		prefs := s.GetPreferences(context.Background())
		assert.Equal(t, models.TimeframeWeek, prefs.Timeframe)
		assert.False(t, prefs.LiveMode)
	})

	t.Run("saved preferences win", func(t *testing.T) {
		s, rt, _ := newServiceWithPoller(t, "week", false)
		store := cache.NewMemoryPreferenceStore()
		require.NoError(t, store.Save(context.Background(), models.MPreferences{Timeframe: models.TimeframeYear, LiveMode: true}))
		s.Preferences = store

		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		assert.Equal(t, models.TimeframeYear, s.AnalyticsState().Timeframe)
		assert.True(t, s.RealtimeState().LiveMode)
		assert.Eventually(t, func() bool { return rt.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	})
}

// stallingExchanger blocks its first broadcast until released.
type stallingExchanger struct {
	recordingExchanger
	stalled chan struct{}
	release chan struct{}
	first   sync.Once
}

func (e *stallingExchanger) Broadcast(msg *models.MPushMessage) {
	e.first.Do(func() {
		close(e.stalled)
		<-e.release
	})
	e.recordingExchanger.Broadcast(msg)
}

func (e *stallingExchanger) lastTimeframe() models.MTimeframe {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.messages[len(e.messages)-1].Analytics.Timeframe
}

func TestSlowPushDoesNotReorderPublishedState(t *testing.T) {
	s := newTestService(newGatedAPI(""), PolicyGeneration)
	ex := &stallingExchanger{stalled: make(chan struct{}), release: make(chan struct{})}
	s.AddExchanger(ex)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.FetchAnalytics(models.TimeframeWeek, nil, false)
	}()
	<-ex.stalled

	go func() {
		defer wg.Done()
		s.FetchAnalytics(models.TimeframeYear, nil, false)
	}()
	assert.Eventually(t, func() bool { return s.AnalyticsState().Timeframe == models.TimeframeYear }, time.Second, 5*time.Millisecond)

	close(ex.release)
	wg.Wait()

	assert.Equal(t, models.TimeframeYear, s.AnalyticsState().Timeframe)
	assert.Equal(t, models.TimeframeYear, ex.lastTimeframe())
}

func TestStartFailureReleasesScheduler(t *testing.T) {
	api := newGatedAPI("")
	s := newTestService(api, PolicyGeneration)
	mock := s.Clock.(*clock.Mock)

	p := poller.NewRealtimePoller(&countingRealtime{}, s.Config, s.Logger)
	p.Clock = mock
	s.Poller = p
	require.NoError(t, p.Start(context.Background()))

	assert.Error(t, s.Start(context.Background()))
	calls := api.salesCalls.Load()

	mock.Add(10 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, api.salesCalls.Load())

	require.NoError(t, p.Stop())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
}

func TestPublishedTimeframeFollowsAppliedRun(t *testing.T) {
	api := newGatedAPI("daily")
	s := newTestService(api, PolicyGeneration)

	s.FetchAnalytics(models.TimeframeMonth, nil, false)
	require.Equal(t, models.TimeframeMonth, s.AnalyticsState().Timeframe)

	done := make(chan models.MAnalyticsState, 1)
	go func() { done <- s.SetTimeframe(models.TimeframeWeek) }()
	<-api.started

	// the month record keeps its label while the week run is in flight
	state := s.AnalyticsState()
	assert.Equal(t, models.TimeframeMonth, state.Timeframe)
	assert.Equal(t, 30.0, state.Record.Revenue.Current)
	assert.Equal(t, models.TimeframeWeek, s.Timeframe())

	close(api.release)
	applied := <-done
	assert.Equal(t, models.TimeframeWeek, applied.Timeframe)
	assert.Equal(t, 7.0, applied.Record.Revenue.Current)
}
