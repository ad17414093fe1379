package normalizer

import (
	"testing"

	"dashboard-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var out interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func canonicalRecord() *models.MAnalyticsRecord {
	return &models.MAnalyticsRecord{
		Revenue: models.MRevenueMetrics{
			Current: 2450000,
			Growth:  12.5,
			Trend: []models.MTrendPoint{
				{Date: "2024-01-02", Value: 220000},
				{Date: "2024-01-01", Value: 180000},
			},
		},
		Users: models.MUserMetrics{
			Current:  1284,
			NewUsers: 142,
			Growth:   8.2,
			Trend:    []models.MTrendPoint{{Date: "2024-01-01", Value: 1200}},
		},
		Orders: models.MOrderMetrics{Current: 89, Completed: 67, Pending: 15, Cancelled: 7, Growth: 15.3},
		Products: models.MProductMetrics{
			TopSelling: []models.MTopProduct{{Name: "Gạo ST25", Sales: 450, Revenue: 2250000}},
			Categories: []models.MCategoryShare{{Name: "Gạo thơm", Value: 45}},
			TotalViews: 15420,
		},
		Retention: models.MRetentionMetrics{
			Rate:  68.5,
			Trend: []models.MTrendPoint{{Date: "2024-01-01", Value: 65}},
		},
	}
}

func TestNormalizeCanonicalIsIdentity(t *testing.T) {
	record := canonicalRecord()

	out, err := NormalizeRecord(record)
	require.NoError(t, err)
	assert.Equal(t, record, out)

	t.Run("twice", func(t *testing.T) {
		again, err := NormalizeRecord(out)
		require.NoError(t, err)
		assert.Equal(t, out, again)
	})

	t.Run("explicit zero does not fall through", func(t *testing.T) {
		zeroed := canonicalRecord()
		zeroed.Revenue.Current = 0
		out, err := NormalizeRecord(zeroed)
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.Revenue.Current)
	})
}

func TestNormalizeMissingFields(t *testing.T) {
	t.Run("all nil", func(t *testing.T) {
		out := Normalize(Inputs{})
		require.NotNil(t, out)
		assert.Equal(t, 0.0, out.Revenue.Current)
		assert.Equal(t, 0.0, out.Orders.Cancelled)
		assert.NotNil(t, out.Revenue.Trend)
		assert.Empty(t, out.Revenue.Trend)
		assert.NotNil(t, out.Users.Trend)
		assert.NotNil(t, out.Products.TopSelling)
		assert.NotNil(t, out.Products.Categories)
		assert.NotNil(t, out.Retention.Trend)
	})

	t.Run("empty objects", func(t *testing.T) {
		empty := decode(t, `{}`)
		out := Normalize(Inputs{
			SalesTrends:        empty,
			UserGrowth:         empty,
			ProductPerformance: empty,
			OrderStatus:        empty,
			CustomerRetention:  empty,
		})
		assert.Equal(t, models.MAnalyticsRecord{
			Revenue:   models.MRevenueMetrics{Trend: []models.MTrendPoint{}},
			Users:     models.MUserMetrics{Trend: []models.MTrendPoint{}},
			Products:  models.MProductMetrics{TopSelling: []models.MTopProduct{}, Categories: []models.MCategoryShare{}},
			Retention: models.MRetentionMetrics{Trend: []models.MTrendPoint{}},
		}, *out)
	})

	t.Run("null values", func(t *testing.T) {
		out := Normalize(Inputs{SalesTrends: decode(t, `{"totalRevenue": null, "growthRate": "n/a"}`)})
		assert.Equal(t, 0.0, out.Revenue.Current)
		assert.Equal(t, 0.0, out.Revenue.Growth)
	})
}

func TestNormalizeAlternateShapes(t *testing.T) {
	in := Inputs{
		SalesTrends: decode(t, `{
			"data": [
				{"period": "W1", "sales": 100},
				{"date": "W2", "revenue": 250},
				{"period": "W3"}
			],
			"summary": {"growthRate": 4.5}
		}`),
		UserGrowth: decode(t, `[
			{"date": "2024-01-01", "totalUsers": 10, "newUsers": 2},
			{"date": "2024-01-02", "totalUsers": 12, "newUsers": 3}
		]`),
		ProductPerformance: decode(t, `[
			{"productName": "Jasmine", "quantitySold": 5, "totalRevenue": 500},
			{"name": "ST25", "totalSold": 7}
		]`),
		OrderStatus: decode(t, `[
			{"status": "COMPLETED", "count": 6},
			{"status": "PENDING", "count": 3},
			{"status": "CANCELLED", "count": 1}
		]`),
		CustomerRetention: decode(t, `{"summary": {"customerRetentionRate": 71.2}}`),
	}

	out := Normalize(in)

	assert.Equal(t, 350.0, out.Revenue.Current)
	assert.Equal(t, 4.5, out.Revenue.Growth)
	assert.Equal(t, []models.MTrendPoint{
		{Date: "W1", Value: 100},
		{Date: "W2", Value: 250},
		{Date: "W3", Value: 0},
	}, out.Revenue.Trend)

	assert.Equal(t, 22.0, out.Users.Current)
	assert.Equal(t, 5.0, out.Users.NewUsers)
	assert.Equal(t, []models.MTrendPoint{
		{Date: "2024-01-01", Value: 10},
		{Date: "2024-01-02", Value: 12},
	}, out.Users.Trend)

	assert.Equal(t, []models.MTopProduct{
		{Name: "Jasmine", Sales: 5, Revenue: 500},
		{Name: "ST25", Sales: 7, Revenue: 0},
	}, out.Products.TopSelling)
	assert.Empty(t, out.Products.Categories)

	assert.Equal(t, 10.0, out.Orders.Current)
	assert.Equal(t, 6.0, out.Orders.Completed)
	assert.Equal(t, 3.0, out.Orders.Pending)
	assert.Equal(t, 1.0, out.Orders.Cancelled)

	assert.Equal(t, 71.2, out.Retention.Rate)
}

func TestNormalizeExtractorPrecedence(t *testing.T) {
	t.Run("totalRevenue beats data sum", func(t *testing.T) {
		out := Normalize(Inputs{SalesTrends: decode(t, `{"totalRevenue": 999, "data": [{"sales": 1}]}`)})
		assert.Equal(t, 999.0, out.Revenue.Current)
	})

	t.Run("trends beats data", func(t *testing.T) {
		out := Normalize(Inputs{SalesTrends: decode(t, `{
			"trends": [{"date": "a", "value": 1}],
			"data": [{"period": "b", "sales": 2}]
		}`)})
		assert.Equal(t, []models.MTrendPoint{{Date: "a", Value: 1}}, out.Revenue.Trend)
	})

	t.Run("topProducts and categories", func(t *testing.T) {
		out := Normalize(Inputs{ProductPerformance: decode(t, `{
			"topProducts": [{"name": "A", "sales": 1, "revenue": 2}],
			"categories": [{"name": "Rice", "value": 45}],
			"totalViews": 100
		}`)})
		assert.Equal(t, []models.MTopProduct{{Name: "A", Sales: 1, Revenue: 2}}, out.Products.TopSelling)
		assert.Equal(t, []models.MCategoryShare{{Name: "Rice", Value: 45}}, out.Products.Categories)
		assert.Equal(t, 100.0, out.Products.TotalViews)
	})

	t.Run("object without product list", func(t *testing.T) {
		out := Normalize(Inputs{ProductPerformance: decode(t, `{"totalViews": 3}`)})
		assert.Empty(t, out.Products.TopSelling)
	})

	t.Run("numeric strings", func(t *testing.T) {
		out := Normalize(Inputs{OrderStatus: decode(t, `{"total": "42", "completed": "40"}`)})
		assert.Equal(t, 42.0, out.Orders.Current)
		assert.Equal(t, 40.0, out.Orders.Completed)
	})

	t.Run("retentionRate alias", func(t *testing.T) {
		out := Normalize(Inputs{CustomerRetention: decode(t, `{"retentionRate": 55}`)})
		assert.Equal(t, 55.0, out.Retention.Rate)
	})
}
