package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dashboard-observer/src/analysis"
	"dashboard-observer/src/fetcher"
	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
	"dashboard-observer/src/poller"

	"github.com/benbjohnson/clock"
)

// Supersede policies for overlapping analytics runs.
const (
	PolicyGeneration = "generation"
	PolicyLastWrite  = "last_write"
)

// Service owns the published analytics and realtime state. Analytics runs
// are triggered on demand, on a fixed interval and on timeframe changes; the
// realtime poller runs independently.
type Service struct {
	Config      *models.MConfig
	Fetcher     *fetcher.AnalyticsFetcher
	Poller      *poller.RealtimePoller
	Analysis    *analysis.AnalysisFacade
	Storage     interfaces.IDatabase     // optional
	Preferences interfaces.IPreferenceStore // optional
	Logger      *logger.Logger
	Errors      *helpers.ErrorHandler
	Clock       clock.Clock

	Policy          string
	RefreshInterval time.Duration

	mu    sync.RWMutex
	pubMu sync.Mutex // orders persist and broadcast by applied generation
	state models.MAnalyticsState

	// requested query; state carries what was applied
	timeframe models.MTimeframe
	dateRange *models.MDateRange

	generation uint64
	inflight   int
	cancelRun  context.CancelFunc
	exchangers []interfaces.IDataExchanger

	lifeMu     sync.Mutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewService(cfg *models.MConfig, f *fetcher.AnalyticsFetcher, p *poller.RealtimePoller, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewLogger(cfg, "Dashboard")
	}

	s := &Service{
		Config:          cfg,
		Fetcher:         f,
		Poller:          p,
		Analysis:        analysis.NewAnalysisFacade(cfg, log.Named("Analysis")),
		Logger:          log,
		Errors:          helpers.NewErrorHandler(log.Named("Errors")),
		Clock:           clock.New(),
		Policy:          PolicyGeneration,
		RefreshInterval: 5 * time.Minute,
		ctx:             context.Background(),
	}
	s.timeframe = models.TimeframeMonth

	if cfg != nil {
		if cfg.Analytics.SupersedePolicy != "" {
			s.Policy = cfg.Analytics.SupersedePolicy
		}
		if cfg.Analytics.RefreshIntervalSeconds > 0 {
			s.RefreshInterval = time.Duration(cfg.Analytics.RefreshIntervalSeconds) * time.Second
		}
		if tf, err := models.ParseTimeframe(cfg.Analytics.DefaultTimeframe); err == nil {
			s.timeframe = tf
		}
	}
	s.state.Timeframe = s.timeframe

	if p != nil {
		p.Publish = s.publishRealtime
	}
	return s
}

// -----------------------------------------------------------------------------

// AddExchanger registers a push target (WebSocket hub, message broker).
func (s *Service) AddExchanger(ex interfaces.IDataExchanger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchangers = append(s.exchangers, ex)
}

func (s *Service) broadcast(msg *models.MPushMessage) {
	s.mu.RLock()
	targets := append([]interfaces.IDataExchanger{}, s.exchangers...)
	s.mu.RUnlock()

	for _, ex := range targets {
		ex.Broadcast(msg)
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start restores preferences, launches the first run, the refresh scheduler
// and the realtime poller.
func (s *Service) Start(parentCtx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.cancelFunc != nil {
		return fmt.Errorf("dashboard service is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.restorePreferences(ctx)
	s.restoreSnapshot()

	ticker := s.Clock.Ticker(s.RefreshInterval)
	s.wg.Add(1)
	go s.runLoop(ctx, ticker)

	if s.Poller != nil {
		if err := s.Poller.Start(ctx); err != nil {
			cancel()
			s.wg.Wait()
			s.cancelFunc = nil
			return fmt.Errorf("failed to start realtime poller: %w", err)
		}
	}

	s.Logger.Info("Dashboard service started (policy=%s, refresh=%s)", s.Policy, s.RefreshInterval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels in-flight runs and waits for background work.
func (s *Service) Stop() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.cancelFunc == nil {
		return nil
	}

	if s.Poller != nil {
		if err := s.Poller.Stop(); err != nil {
			s.Logger.Error("Error stopping poller: %v", err)
		}
	}

	s.cancelFunc()
	s.wg.Wait()
	s.cancelFunc = nil

	s.Logger.Info("Dashboard service stopped")
	return nil
}

// -----------------------------------------------------------------------------

func (s *Service) runLoop(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	s.Refresh(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(true)
		}
	}
}

func (s *Service) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// -----------------------------------------------------------------------------
// Analytics
// -----------------------------------------------------------------------------

// FetchAnalytics runs the degradation chain for the given query and returns
// the state published afterwards. Under the generation policy a newer run
// cancels this one and its result is discarded.
func (s *Service) FetchAnalytics(tf models.MTimeframe, dr *models.MDateRange, force bool) models.MAnalyticsState {
	base := s.baseContext()

	s.mu.Lock()
	s.generation++
	gen := s.generation

	runCtx, cancel := base, context.CancelFunc(nil)
	if s.Policy == PolicyGeneration {
		if s.cancelRun != nil {
			s.cancelRun()
		}
		runCtx, cancel = context.WithCancel(base)
		s.cancelRun = cancel
	}
	s.inflight++
	s.state.Loading = true
	s.mu.Unlock()

	s.Logger.Debug("Run %d started (%s, %s)", gen, tf, dr.Key())
	result := s.Fetcher.Fetch(runCtx, tf, dr, force)

	s.mu.Lock()
	s.inflight--
	applied := false
	if s.Policy == PolicyGeneration {
		if gen == s.generation {
			s.cancelRun = nil
			applied = result.Record != nil
		}
		cancel()
	} else {
		applied = result.Record != nil
	}

	if applied {
		s.state.Record = result.Record
		s.state.Tier = result.Tier
		s.state.Timeframe = result.Timeframe
		s.state.DateRange = result.DateRange
		s.state.Generation = gen
		s.state.RunID = result.RunID
		s.state.Cached = result.Cached
		s.state.UpdatedAt = result.Finished
		s.state.Error = ""
		if result.Err != nil {
			s.state.Error = result.Err.Error()
		}
	} else {
		s.Logger.Debug("Run %d discarded (current generation %d)", gen, s.generation)
	}
	s.state.Loading = s.inflight > 0
	published := s.state
	s.mu.Unlock()

	if applied {
		s.publish(gen, &published)
	}
	return published
}

// publish persists and pushes an applied state unless a later applied run
// has already replaced it.
func (s *Service) publish(gen uint64, state *models.MAnalyticsState) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.RLock()
	current := s.state.Generation
	s.mu.RUnlock()
	if current != gen {
		s.Logger.Debug("Run %d not published, generation %d applied since", gen, current)
		return
	}

	s.persist(state)
	s.broadcast(&models.MPushMessage{
		Type:      models.MessageTypeAnalytics,
		Analytics: state,
		Timestamp: s.Clock.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

// Refresh re-runs the current query. force bypasses the record cache.
func (s *Service) Refresh(force bool) models.MAnalyticsState {
	s.mu.RLock()
	tf, dr := s.timeframe, s.dateRange
	s.mu.RUnlock()
	return s.FetchAnalytics(tf, dr, force)
}

// -----------------------------------------------------------------------------

// SetTimeframe switches the timeframe and runs a fetch when it changed. The
// published state keeps its own timeframe until that run is applied.
func (s *Service) SetTimeframe(tf models.MTimeframe) models.MAnalyticsState {
	s.mu.Lock()
	changed := s.timeframe != tf || s.state.Record == nil
	s.requestTimeframe(tf)
	dr := s.dateRange
	current := s.state
	s.mu.Unlock()

	if !changed {
		return current
	}
	s.Logger.Info("Timeframe changed to %s", tf)
	return s.FetchAnalytics(tf, dr, false)
}

// -----------------------------------------------------------------------------

// SetDateRange applies an optional date window to subsequent runs and runs a
// fetch. A nil or empty range clears it.
func (s *Service) SetDateRange(dr *models.MDateRange) (models.MAnalyticsState, error) {
	if !dr.IsZero() && (dr.Start == "" || dr.End == "") {
		return models.MAnalyticsState{}, helpers.NewValidationError("date range needs both start and end")
	}
	if dr.IsZero() {
		dr = nil
	}

	s.mu.Lock()
	s.dateRange = dr
	tf := s.timeframe
	s.mu.Unlock()

	return s.FetchAnalytics(tf, dr, false), nil
}

// -----------------------------------------------------------------------------

// requestTimeframe records the query timeframe. Before the first record the
// empty state takes the same label. Callers hold mu.
func (s *Service) requestTimeframe(tf models.MTimeframe) {
	s.timeframe = tf
	if s.state.Record == nil {
		s.state.Timeframe = tf
	}
}

// Timeframe is the timeframe the next run will use.
func (s *Service) Timeframe() models.MTimeframe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeframe
}

// AnalyticsState returns a copy of the published analytics state.
func (s *Service) AnalyticsState() models.MAnalyticsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Summary returns statistics over the current record, or nil before the first run.
func (s *Service) Summary() *models.MAnalyticsSummary {
	state := s.AnalyticsState()
	return s.Analysis.Summarize(&state)
}

// -----------------------------------------------------------------------------

// restoreSnapshot publishes the newest stored record for the current
// timeframe so clients have data before the first run completes.
func (s *Service) restoreSnapshot() {
	if s.Storage == nil {
		return
	}

	s.mu.RLock()
	tf, hasRecord := s.timeframe, s.state.Record != nil
	s.mu.RUnlock()
	if hasRecord {
		return
	}

	snap, err := s.Storage.LatestAnalyticsSnapshot(tf)
	if err != nil {
		s.Errors.Handle(err, "LatestAnalyticsSnapshot")
		return
	}
	if snap == nil || snap.Record == nil {
		return
	}

	s.mu.Lock()
	if s.state.Record == nil && s.timeframe == tf {
		s.state.Record = snap.Record
		s.state.Tier = snap.Tier
		s.state.RunID = snap.RunID
		s.state.UpdatedAt = snap.UpdatedAt
		s.state.Cached = true
	}
	s.mu.Unlock()
	s.Logger.Info("Restored %s snapshot %s from storage", tf, snap.RunID)
}

// InvalidateCache drops every cached analytics record.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.Fetcher == nil || s.Fetcher.Cache == nil {
		return nil
	}
	if err := s.Fetcher.Cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	s.Logger.Info("Analytics cache invalidated")
	return nil
}

// ErrorCount is the number of ambient failures (storage, preferences) seen
// since the last successful persisted write.
func (s *Service) ErrorCount() int {
	return s.Errors.Count()
}

// -----------------------------------------------------------------------------

func (s *Service) persist(state *models.MAnalyticsState) {
	if s.Storage == nil {
		return
	}
	if err := s.Storage.SaveAnalyticsSnapshot(state); err != nil {
		s.Errors.Handle(err, "SaveAnalyticsSnapshot")
		return
	}
	if err := s.Storage.CleanupOldData(); err != nil {
		s.Errors.Handle(err, "CleanupOldData")
		return
	}
	s.Errors.ResetErrorCount()
}

// -----------------------------------------------------------------------------
// Realtime
// -----------------------------------------------------------------------------

// StartRealtimePolling sets live mode and returns the current realtime state.
func (s *Service) StartRealtimePolling(liveMode bool) models.MRealtimeState {
	if s.Poller == nil {
		return models.MRealtimeState{LiveMode: liveMode}
	}
	s.Poller.SetLiveMode(liveMode)
	return s.Poller.State()
}

func (s *Service) RealtimeState() models.MRealtimeState {
	if s.Poller == nil {
		return models.MRealtimeState{}
	}
	return s.Poller.State()
}

// RealtimeHistory returns up to n in-memory samples, oldest first.
func (s *Service) RealtimeHistory(n int) []models.MRealtimeSample {
	if s.Poller == nil {
		return []models.MRealtimeSample{}
	}
	return s.Poller.HistorySamples(n)
}

// RealtimeColumn returns one realtime field over the in-memory history.
func (s *Service) RealtimeColumn(field string) ([]float64, error) {
	if s.Poller == nil {
		return []float64{}, nil
	}
	return s.Poller.HistoryColumn(field)
}

// PollerRunning reports whether the realtime poller loop is active.
func (s *Service) PollerRunning() bool {
	return s.Poller != nil && s.Poller.IsRunning()
}

// RealtimeWindows averages the in-memory samples per aligned window.
func (s *Service) RealtimeWindows(windowSeconds int64) []models.MRealtimeWindow {
	return s.Analysis.AggregateRealtime(s.RealtimeHistory(0), windowSeconds)
}

func (s *Service) publishRealtime(state models.MRealtimeState) {
	s.broadcast(&models.MPushMessage{
		Type:      models.MessageTypeRealtime,
		Realtime:  &state,
		Timestamp: s.Clock.Now().Unix(),
	})
}
