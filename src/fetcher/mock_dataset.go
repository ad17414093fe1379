package fetcher

import "dashboard-observer/src/models"

// referenceDataset is the last-resort record served when both the primary and
// the fallback tier fail. Never hand it out directly; use MockDataset.
var referenceDataset = models.MAnalyticsRecord{
	Revenue: models.MRevenueMetrics{
		Current: 2450000,
		Growth:  12.5,
		Trend: []models.MTrendPoint{
			{Date: "2024-01-01", Value: 180000},
			{Date: "2024-01-02", Value: 220000},
			{Date: "2024-01-03", Value: 190000},
			{Date: "2024-01-04", Value: 250000},
			{Date: "2024-01-05", Value: 280000},
			{Date: "2024-01-06", Value: 310000},
			{Date: "2024-01-07", Value: 295000},
		},
	},
	Users: models.MUserMetrics{
		Current:  1284,
		NewUsers: 142,
		Growth:   8.2,
		Trend: []models.MTrendPoint{
			{Date: "2024-01-01", Value: 1200},
			{Date: "2024-01-02", Value: 1210},
			{Date: "2024-01-03", Value: 1225},
			{Date: "2024-01-04", Value: 1240},
			{Date: "2024-01-05", Value: 1260},
			{Date: "2024-01-06", Value: 1275},
			{Date: "2024-01-07", Value: 1284},
		},
	},
	Orders: models.MOrderMetrics{
		Current:   89,
		Completed: 67,
		Pending:   15,
		Cancelled: 7,
		Growth:    15.3,
	},
	Products: models.MProductMetrics{
		TopSelling: []models.MTopProduct{
			{Name: "Gạo ST25", Sales: 450, Revenue: 2250000},
			{Name: "Gạo Jasmine", Sales: 320, Revenue: 1600000},
			{Name: "Gạo Tám Xoan", Sales: 280, Revenue: 1680000},
		},
		Categories: []models.MCategoryShare{
			{Name: "Gạo thơm", Value: 45},
			{Name: "Gạo tẻ", Value: 30},
			{Name: "Gạo nàng hương", Value: 25},
		},
		TotalViews: 15420,
	},
	Retention: models.MRetentionMetrics{
		Rate: 68.5,
		Trend: []models.MTrendPoint{
			{Date: "2024-01-01", Value: 65},
			{Date: "2024-01-02", Value: 66.5},
			{Date: "2024-01-03", Value: 67},
			{Date: "2024-01-04", Value: 68},
			{Date: "2024-01-05", Value: 68.5},
		},
	},
}

// MockDataset returns a fresh copy of the reference dataset.
func MockDataset() *models.MAnalyticsRecord {
	return referenceDataset.Clone()
}
