package backend

import (
	"context"
	"errors"
	"testing"

	"dashboard-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork returns canned bodies per path and records the last params.
type fakeNetwork struct {
	bodies map[string]string
	params map[string]map[string]string
}

func (f *fakeNetwork) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if f.params == nil {
		f.params = make(map[string]map[string]string)
	}
	f.params[path] = params
	body, ok := f.bodies[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func TestQueryParameters(t *testing.T) {
	net := &fakeNetwork{bodies: map[string]string{
		PathSalesTrends: `{}`, PathUserGrowth: `[]`, PathCustomerRetention: `{}`,
	}}
	src := NewAnalyticsSource(net, nil)
	ctx := context.Background()
	dr := &models.MDateRange{Start: "2024-01-01", End: "2024-01-31"}

	_, err := src.GetSalesTrends(ctx, "weekly", 30, dr)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"timeframe": "weekly", "timespan": "30", "startDate": "2024-01-01", "endDate": "2024-01-31",
	}, net.params[PathSalesTrends])

	_, err = src.GetUserGrowth(ctx, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"days": "7"}, net.params[PathUserGrowth])

	_, err = src.GetCustomerRetention(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, net.params[PathCustomerRetention])
}

func TestGenericPayloadsKeepShape(t *testing.T) {
	net := &fakeNetwork{bodies: map[string]string{
		PathOrderStatus: `[{"status":"COMPLETED","count":3}]`,
	}}
	src := NewAnalyticsSource(net, nil)

	out, err := src.GetOrderStatusDistribution(context.Background(), nil)
	require.NoError(t, err)
	rows, ok := out.([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "COMPLETED", rows[0].(map[string]interface{})["status"])
}

func TestDashboardAnalyticsUnwrapsEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare", `{"revenue":{"current":5}}`},
		{"wrapped", `{"data":{"revenue":{"current":5}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewAnalyticsSource(&fakeNetwork{bodies: map[string]string{PathDashboard: tt.body}}, nil)
			rec, err := src.GetDashboardAnalytics(context.Background(), models.TimeframeWeek)
			require.NoError(t, err)
			assert.Equal(t, 5.0, rec.Revenue.Current)
			assert.NotNil(t, rec.Users.Trend)
			assert.NotNil(t, rec.Products.TopSelling)
		})
	}
}

func TestRealtimeMetricsPartialPayload(t *testing.T) {
	src := NewAnalyticsSource(&fakeNetwork{bodies: map[string]string{
		PathRealtimeMetrics: `{"data":{"onlineUsers":50,"recentSales":160000}}`,
	}}, nil)

	p, err := src.GetRealtimeMetrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p.OnlineUsers)
	assert.Equal(t, 50.0, *p.OnlineUsers)
	assert.Nil(t, p.ActiveOrders)
	assert.Nil(t, p.ConversionRate)
}

func TestDecodeErrors(t *testing.T) {
	src := NewAnalyticsSource(&fakeNetwork{bodies: map[string]string{PathProductPerf: `not json`}}, nil)
	_, err := src.GetProductPerformance(context.Background(), nil)
	assert.Error(t, err)

	_, err = src.GetRealtimeMetrics(context.Background())
	assert.Error(t, err)
}

func TestUnwrapData(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(unwrapData([]byte(`{"data": {"a":1}}`))))
	assert.Equal(t, `{"data":[1]}`, string(unwrapData([]byte(`{"data":[1]}`))))
	assert.Equal(t, `[1]`, string(unwrapData([]byte(`[1]`))))
}
