package analysis

import (
	"sort"

	"dashboard-observer/src/analysis/core"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
)

// AnalysisFacade derives chart-ready summaries from published state.
type AnalysisFacade struct {
	Config    *models.MConfig
	MaxPoints int
	Resampler *TimeSeriesResampler
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewLogger(cfg, "AnalysisFacade")
	}
	maxPoints := 50
	if cfg != nil && cfg.Analytics.MaxChartPoints > 0 {
		maxPoints = cfg.Analytics.MaxChartPoints
	}
	return &AnalysisFacade{
		Config:    cfg,
		MaxPoints: maxPoints,
		Resampler: &TimeSeriesResampler{},
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// Summarize computes statistics and downsampled trends for a state. It returns
// nil while no record has been published yet.
func (a *AnalysisFacade) Summarize(state *models.MAnalyticsState) *models.MAnalyticsSummary {
	if state == nil || state.Record == nil {
		return nil
	}
	r := state.Record

	return &models.MAnalyticsSummary{
		Timeframe: state.Timeframe,
		Label:     state.Timeframe.Label(),
		Tier:      state.Tier,
		// revenue per bucket adds up; user and retention levels do not
		Revenue:        a.summarizeTrend(r.Revenue.Trend, AggregateSum),
		Users:          a.summarizeTrend(r.Users.Trend, AggregateAverage),
		Retention:      a.summarizeTrend(r.Retention.Trend, AggregateAverage),
		CompletionRate: core.SafeRatio(r.Orders.Completed, r.Orders.Current),
		AvgOrderValue:  core.SafeRatio(r.Revenue.Current, r.Orders.Current),
	}
}

func (a *AnalysisFacade) summarizeTrend(points []models.MTrendPoint, agg AggregationType) models.MTrendSummary {
	return models.MTrendSummary{
		Stats:  core.CalculateStatistics(trendValues(points)),
		Points: OptimizeDataset(points, a.MaxPoints, agg),
	}
}

// -----------------------------------------------------------------------------

// AggregateRealtime averages realtime samples per aligned window and reports
// the online-users change against the previous window.
func (a *AnalysisFacade) AggregateRealtime(samples []models.MRealtimeSample, windowSeconds int64) []models.MRealtimeWindow {
	if len(samples) == 0 || windowSeconds <= 0 {
		return []models.MRealtimeWindow{}
	}

	sorted := append([]models.MRealtimeSample{}, samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	timestamps := make([]int64, len(sorted))
	for i, s := range sorted {
		timestamps[i] = s.Timestamp
	}

	windows := a.Resampler.ResampleIndices(timestamps, windowSeconds)
	results := make([]models.MRealtimeWindow, 0, len(windows))

	for i, w := range windows {
		var users, orders, sales, conv []float64
		for _, idx := range w.Indices {
			m := sorted[idx].Metrics
			users = append(users, m.OnlineUsers)
			orders = append(orders, m.ActiveOrders)
			sales = append(sales, m.RecentSales)
			conv = append(conv, m.ConversionRate)
		}

		avgUsers, _ := core.CalculateMeanStd(users)
		avgOrders, _ := core.CalculateMeanStd(orders)
		avgSales, _ := core.CalculateMeanStd(sales)
		avgConv, _ := core.CalculateMeanStd(conv)

		window := models.MRealtimeWindow{
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			Samples:   len(w.Indices),
			Average: models.MRealTimeMetrics{
				OnlineUsers:    avgUsers,
				ActiveOrders:   avgOrders,
				RecentSales:    avgSales,
				ConversionRate: avgConv,
			},
		}
		if i > 0 {
			window.OnlineUsersChange = core.CalculateChangePercent(avgUsers, results[i-1].Average.OnlineUsers)
		}
		results = append(results, window)
	}

	return results
}
