package models

// MStatistics summarizes one numeric series.
type MStatistics struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Sum     float64 `json:"sum"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"stdDev"`
	Count   int     `json:"count"`
}

// MTrendSummary is a trend reduced for charting plus its statistics.
type MTrendSummary struct {
	Stats  MStatistics   `json:"stats"`
	Points []MTrendPoint `json:"points"`
}

// MAnalyticsSummary backs the summary endpoint.
type MAnalyticsSummary struct {
	Timeframe      MTimeframe    `json:"timeframe"`
	Label          string        `json:"label"`
	Tier           MTier         `json:"tier"`
	Revenue        MTrendSummary `json:"revenue"`
	Users          MTrendSummary `json:"users"`
	Retention      MTrendSummary `json:"retention"`
	CompletionRate float64       `json:"completionRate"`
	AvgOrderValue  float64       `json:"avgOrderValue"`
}

// MRealtimeWindow aggregates the realtime samples of one time window.
type MRealtimeWindow struct {
	StartTime int64            `json:"startTime"`
	EndTime   int64            `json:"endTime"`
	Samples   int              `json:"samples"`
	Average   MRealTimeMetrics `json:"average"`
	// Change of online users relative to the previous window, as a fraction.
	OnlineUsersChange float64 `json:"onlineUsersChange"`
}
