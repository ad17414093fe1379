package backend

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	PathSalesTrends       = "/api/analytics/sales-trends"
	PathUserGrowth        = "/api/analytics/user-growth"
	PathProductPerf       = "/api/analytics/product-performance"
	PathOrderStatus       = "/api/analytics/order-status-distribution"
	PathCustomerRetention = "/api/analytics/customer-retention"
	PathDashboard         = "/api/analytics/dashboard"
	PathRealtimeMetrics   = "/api/dashboard/realtime-metrics"
)

// AnalyticsSource maps the logical analytics operations onto the shop REST API.
type AnalyticsSource struct {
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

var _ interfaces.IAnalyticsAPI = (*AnalyticsSource)(nil)

// -----------------------------------------------------------------------------

func NewAnalyticsSource(netMgr interfaces.INetworkManager, log *logger.Logger) *AnalyticsSource {
	if log == nil {
		log = logger.NewLogger(nil, "AnalyticsSource")
	}
	return &AnalyticsSource{
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetSalesTrends(ctx context.Context, granularity string, timespan int, dr *models.MDateRange) (interface{}, error) {
	params := withRange(map[string]string{
		"timeframe": granularity,
		"timespan":  strconv.Itoa(timespan),
	}, dr)
	return s.getGeneric(ctx, PathSalesTrends, params)
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetUserGrowth(ctx context.Context, days int, dr *models.MDateRange) (interface{}, error) {
	params := withRange(map[string]string{"days": strconv.Itoa(days)}, dr)
	return s.getGeneric(ctx, PathUserGrowth, params)
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetProductPerformance(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return s.getGeneric(ctx, PathProductPerf, withRange(nil, dr))
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetOrderStatusDistribution(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return s.getGeneric(ctx, PathOrderStatus, withRange(nil, dr))
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetCustomerRetention(ctx context.Context, dr *models.MDateRange) (interface{}, error) {
	return s.getGeneric(ctx, PathCustomerRetention, withRange(nil, dr))
}

// -----------------------------------------------------------------------------

// GetDashboardAnalytics decodes the consolidated endpoint straight into the
// canonical record. Unknown keys are ignored, missing ones stay zero.
func (s *AnalyticsSource) GetDashboardAnalytics(ctx context.Context, timeframe models.MTimeframe) (*models.MAnalyticsRecord, error) {
	body, err := s.Network.Get(ctx, PathDashboard, map[string]string{"timeframe": string(timeframe)})
	if err != nil {
		return nil, err
	}

	var record models.MAnalyticsRecord
	if err := json.Unmarshal(unwrapData(body), &record); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PathDashboard, err)
	}
	record.EnsureShape()
	return &record, nil
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) GetRealtimeMetrics(ctx context.Context) (*models.MRealtimePayload, error) {
	body, err := s.Network.Get(ctx, PathRealtimeMetrics, nil)
	if err != nil {
		return nil, err
	}

	var payload models.MRealtimePayload
	if err := json.Unmarshal(unwrapData(body), &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PathRealtimeMetrics, err)
	}
	return &payload, nil
}

// -----------------------------------------------------------------------------

func (s *AnalyticsSource) getGeneric(ctx context.Context, path string, params map[string]string) (interface{}, error) {
	body, err := s.Network.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s.Logger.Debug("%s -> %T", path, out)
	return out, nil
}

// -----------------------------------------------------------------------------

func withRange(params map[string]string, dr *models.MDateRange) map[string]string {
	if params == nil {
		params = make(map[string]string)
	}
	if !dr.IsZero() {
		params["startDate"] = dr.Start
		params["endDate"] = dr.End
	}
	return params
}

// unwrapData returns the inner object of a {"data": {...}} envelope, or the
// body unchanged when there is no such envelope.
func unwrapData(body []byte) []byte {
	var envelope map[string]jsoniter.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	inner, ok := envelope["data"]
	inner = bytes.TrimSpace(inner)
	if !ok || len(inner) == 0 || inner[0] != '{' {
		return body
	}
	return inner
}
