package interfaces

import (
	"context"

	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------
// IAnalyticsAPI is the set of logical backend operations the pipeline consumes.
// The five primary payloads are returned as decoded JSON of unknown shape.
// -----------------------------------------------------------------------------

type IAnalyticsAPI interface {
	GetSalesTrends(ctx context.Context, granularity string, timespan int, dr *models.MDateRange) (interface{}, error)

	// -----------------------------------------------------------------------------

	GetUserGrowth(ctx context.Context, days int, dr *models.MDateRange) (interface{}, error)

	// -----------------------------------------------------------------------------

	GetProductPerformance(ctx context.Context, dr *models.MDateRange) (interface{}, error)

	// -----------------------------------------------------------------------------

	GetOrderStatusDistribution(ctx context.Context, dr *models.MDateRange) (interface{}, error)

	// -----------------------------------------------------------------------------

	GetCustomerRetention(ctx context.Context, dr *models.MDateRange) (interface{}, error)

	// -----------------------------------------------------------------------------

	// GetDashboardAnalytics is the consolidated fallback endpoint; it already
	// answers in canonical shape.
	GetDashboardAnalytics(ctx context.Context, timeframe models.MTimeframe) (*models.MAnalyticsRecord, error)

	// -----------------------------------------------------------------------------

	IRealtimeSource
}

// -----------------------------------------------------------------------------
// IRealtimeSource is the single operation the live-metrics poller needs.
// -----------------------------------------------------------------------------

type IRealtimeSource interface {
	// GetRealtimeMetrics returns a possibly partial live-metrics payload.
	GetRealtimeMetrics(ctx context.Context) (*models.MRealtimePayload, error)
}
