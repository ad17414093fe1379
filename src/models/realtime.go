package models

import "time"

// MRealTimeMetrics is the live-metrics record, replaced wholesale every tick.
type MRealTimeMetrics struct {
	OnlineUsers    float64 `json:"onlineUsers"`
	ActiveOrders   float64 `json:"activeOrders"`
	RecentSales    float64 `json:"recentSales"`
	ConversionRate float64 `json:"conversionRate"`
}

// MRealtimePayload is what the backend returns; any field may be absent.
type MRealtimePayload struct {
	OnlineUsers    *float64 `json:"onlineUsers"`
	ActiveOrders   *float64 `json:"activeOrders"`
	RecentSales    *float64 `json:"recentSales"`
	ConversionRate *float64 `json:"conversionRate"`
}

// MRealtimeSample is one poll result as kept in history and storage.
type MRealtimeSample struct {
	Metrics   MRealTimeMetrics `json:"metrics"`
	Synthetic bool             `json:"synthetic"`
	Timestamp int64            `json:"timestamp"`
}

// MRealtimeState is what the dashboard reads for the live-metrics bar.
type MRealtimeState struct {
	Metrics    *MRealTimeMetrics `json:"metrics"`
	LastUpdate time.Time         `json:"lastUpdate"`
	LiveMode   bool              `json:"liveMode"`
	Synthetic  bool              `json:"synthetic"`
}
