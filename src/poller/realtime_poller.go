package poller

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
	"dashboard-observer/src/utils"

	"github.com/benbjohnson/clock"
)

// Sampling ranges used when the backend omits a field or the request fails.
// Lower bound inclusive, upper bound exclusive.
const (
	OnlineUsersMin    = 45
	OnlineUsersMax    = 70
	ActiveOrdersMin   = 12
	ActiveOrdersMax   = 20
	RecentSalesMin    = 150000
	RecentSalesMax    = 200000
	ConversionRateMin = 2.5
	ConversionRateMax = 4.0
)

// RealtimePoller refreshes live metrics on a fixed interval while live mode
// is on. With live mode off the ticker keeps running but makes no calls.
type RealtimePoller struct {
	Source   interfaces.IRealtimeSource
	Storage  interfaces.IDatabase // optional
	History  *utils.MemoryManager
	Logger   *logger.Logger
	Clock    clock.Clock
	Interval time.Duration

	// Publish receives every new state.
	Publish func(state models.MRealtimeState)

	liveMode  atomic.Bool
	isRunning atomic.Bool
	kick      chan struct{}

	rngMu sync.Mutex
	rng   *rand.Rand

	stateMu sync.RWMutex
	state   models.MRealtimeState

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewRealtimePoller(source interfaces.IRealtimeSource, cfg *models.MConfig, log *logger.Logger) *RealtimePoller {
	if log == nil {
		log = logger.NewLogger(cfg, "RealtimePoller")
	}

	interval := 30 * time.Second
	historySize := 0
	maxMemoryMB := 0
	live := true
	if cfg != nil {
		if cfg.Realtime.PollIntervalSeconds > 0 {
			interval = time.Duration(cfg.Realtime.PollIntervalSeconds) * time.Second
		}
		historySize = cfg.Realtime.HistorySize
		maxMemoryMB = cfg.Realtime.MaxMemoryMB
		live = cfg.Realtime.LiveMode
	}
	if historySize <= 0 {
		historySize = utils.CalculateMaxDataPoints(utils.DefaultHistoryWindow, interval)
	}

	p := &RealtimePoller{
		Source:   source,
		History:  utils.NewMemoryManager(maxMemoryMB, historySize),
		Logger:   log,
		Clock:    clock.New(),
		Interval: interval,
		kick:     make(chan struct{}, 1),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	p.liveMode.Store(live)
	p.state.LiveMode = live
	return p
}

// -----------------------------------------------------------------------------

// Seed makes sampling deterministic.
func (p *RealtimePoller) Seed(seed int64) {
	p.rngMu.Lock()
	p.rng = rand.New(rand.NewSource(seed))
	p.rngMu.Unlock()
}

// -----------------------------------------------------------------------------

// Start launches the tick loop. If live mode is on, the first poll happens
// immediately.
func (p *RealtimePoller) Start(parentCtx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		return fmt.Errorf("realtime poller is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.isRunning.Store(true)

	p.restoreHistory()

	// Created before the goroutine so a mock clock sees it right away.
	ticker := p.Clock.Ticker(p.Interval)

	if p.liveMode.Load() {
		p.trigger()
	}

	p.wg.Add(1)
	go p.runLoop(ctx, ticker)
	p.Logger.Info("Started realtime poller (interval %s, live=%v)", p.Interval, p.liveMode.Load())
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the loop, releases the ticker and waits for an in-flight poll.
func (p *RealtimePoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning.Load() {
		return nil
	}

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.wg.Wait()
	p.isRunning.Store(false)
	p.Logger.Info("Stopped realtime poller")
	return nil
}

// -----------------------------------------------------------------------------

func (p *RealtimePoller) IsRunning() bool {
	return p.isRunning.Load()
}

func (p *RealtimePoller) LiveMode() bool {
	return p.liveMode.Load()
}

// -----------------------------------------------------------------------------

// SetLiveMode toggles polling. Switching it on while running triggers an
// immediate poll; switching it off stops all network calls from the next tick.
func (p *RealtimePoller) SetLiveMode(on bool) {
	was := p.liveMode.Swap(on)

	p.stateMu.Lock()
	p.state.LiveMode = on
	p.stateMu.Unlock()

	if on && !was && p.isRunning.Load() {
		p.trigger()
	}
	if on != was {
		p.Logger.Info("Live mode set to %v", on)
	}
}

func (p *RealtimePoller) trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (p *RealtimePoller) runLoop(ctx context.Context, ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.liveMode.Load() {
				p.Poll(ctx)
			}
		case <-p.kick:
			if p.liveMode.Load() {
				// the next tick comes a full interval after this poll
				ticker.Reset(p.Interval)
				p.Poll(ctx)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Poll performs one request and replaces the current metrics wholesale.
func (p *RealtimePoller) Poll(ctx context.Context) models.MRealtimeState {
	payload, err := p.Source.GetRealtimeMetrics(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return p.State()
		}
		if helpers.IsNetworkError(err) {
			p.Logger.Warning("Realtime metrics request failed, sampling: %v", err)
		} else {
			p.Logger.Error("Realtime metrics unusable, sampling: %v", err)
		}
		payload = nil
	}

	metrics, synthetic := p.fill(payload)
	now := p.Clock.Now()

	p.stateMu.Lock()
	p.state = models.MRealtimeState{
		Metrics:    &metrics,
		LastUpdate: now,
		LiveMode:   p.liveMode.Load(),
		Synthetic:  synthetic,
	}
	state := p.state
	p.stateMu.Unlock()

	sample := models.MRealtimeSample{Metrics: metrics, Synthetic: synthetic, Timestamp: now.Unix()}
	p.History.AddSample(utils.RealtimeStream, sample)
	if p.Storage != nil {
		if err := p.Storage.SaveRealtimeSample(sample); err != nil {
			p.Logger.Error("Failed to persist realtime sample: %v", err)
		}
	}

	if p.Publish != nil {
		p.Publish(state)
	}
	return state
}

// -----------------------------------------------------------------------------

// fill takes present fields from the payload and samples the rest. A nil
// payload samples all four.
func (p *RealtimePoller) fill(payload *models.MRealtimePayload) (models.MRealTimeMetrics, bool) {
	if payload == nil {
		payload = &models.MRealtimePayload{}
	}

	p.rngMu.Lock()
	defer p.rngMu.Unlock()

	synthetic := false
	pick := func(v *float64, sample func() float64) float64 {
		if v != nil {
			return *v
		}
		synthetic = true
		return sample()
	}

	m := models.MRealTimeMetrics{
		OnlineUsers: pick(payload.OnlineUsers, func() float64 {
			return float64(OnlineUsersMin + p.rng.Intn(OnlineUsersMax-OnlineUsersMin))
		}),
		ActiveOrders: pick(payload.ActiveOrders, func() float64 {
			return float64(ActiveOrdersMin + p.rng.Intn(ActiveOrdersMax-ActiveOrdersMin))
		}),
		RecentSales: pick(payload.RecentSales, func() float64 {
			return float64(RecentSalesMin + p.rng.Intn(RecentSalesMax-RecentSalesMin))
		}),
		ConversionRate: pick(payload.ConversionRate, func() float64 {
			v := ConversionRateMin + p.rng.Float64()*(ConversionRateMax-ConversionRateMin)
			return math.Min(v, math.Nextafter(ConversionRateMax, 0))
		}),
	}
	return m, synthetic
}

// -----------------------------------------------------------------------------

// State returns a copy of the current realtime state.
func (p *RealtimePoller) State() models.MRealtimeState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	s := p.state
	if s.Metrics != nil {
		m := *s.Metrics
		s.Metrics = &m
	}
	return s
}

// -----------------------------------------------------------------------------

// HistorySamples returns up to n recent samples, oldest first.
func (p *RealtimePoller) HistorySamples(n int) []models.MRealtimeSample {
	return p.History.Latest(utils.RealtimeStream, n)
}

// HistoryFields maps the field names accepted by HistoryColumn to history
// columns.
var HistoryFields = map[string]int{
	"onlineUsers":    models.RB_IDX_ONLINE_USERS,
	"activeOrders":   models.RB_IDX_ACTIVE_ORDERS,
	"recentSales":    models.RB_IDX_RECENT_SALES,
	"conversionRate": models.RB_IDX_CONVERSION_RATE,
}

// HistoryColumn returns one metric over the whole history, oldest first, as
// used for sparklines.
func (p *RealtimePoller) HistoryColumn(field string) ([]float64, error) {
	idx, ok := HistoryFields[field]
	if !ok {
		return nil, helpers.NewValidationError("unknown realtime field %q", field)
	}
	return p.History.Column(utils.RealtimeStream, idx), nil
}

// -----------------------------------------------------------------------------

// restoreHistory preloads the in-memory history from storage once.
func (p *RealtimePoller) restoreHistory() {
	if p.Storage == nil || p.History.Size(utils.RealtimeStream) > 0 {
		return
	}
	samples, err := p.Storage.RecentRealtimeSamples(p.History.MaxDataPoints)
	if err != nil {
		p.Logger.Warning("Could not restore realtime history: %v", err)
		return
	}
	for _, s := range samples {
		p.History.AddSample(utils.RealtimeStream, s)
	}
	if len(samples) > 0 {
		p.Logger.Info("Restored %d realtime samples from storage", len(samples))
	}
}
