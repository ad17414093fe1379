package models

import "time"

// MTier names the stage of the degradation chain that produced a record.
type MTier string

const (
	TierNone     MTier = ""
	TierPrimary  MTier = "primary"
	TierFallback MTier = "fallback"
	TierMock     MTier = "mock"
)

// -----------------------------------------------------------------------------
// Analytics state as exposed to the presentation layer
// -----------------------------------------------------------------------------

type MAnalyticsState struct {
	Record     *MAnalyticsRecord `json:"record"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	Tier       MTier             `json:"tier"`
	Timeframe  MTimeframe        `json:"timeframe"`
	DateRange  *MDateRange       `json:"dateRange,omitempty"`
	Generation uint64            `json:"generation"`
	RunID      string            `json:"runId,omitempty"`
	Cached     bool              `json:"cached"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// MFetchResult is the outcome of one run through the degradation chain.
type MFetchResult struct {
	RunID     string
	Record    *MAnalyticsRecord
	Tier      MTier
	Err       error // tier-1 error, kept as advisory text
	Cached    bool
	Timeframe MTimeframe
	DateRange *MDateRange
	Started   time.Time
	Finished  time.Time
}

// -----------------------------------------------------------------------------
// Push messages (WebSocket / AMQP)
// -----------------------------------------------------------------------------

const (
	MessageTypeInitial   = "INITIAL"
	MessageTypeAnalytics = "ANALYTICS"
	MessageTypeRealtime  = "REALTIME"
)

type MPushMessage struct {
	Type      string           `json:"type"`
	Analytics *MAnalyticsState `json:"analytics,omitempty"`
	Realtime  *MRealtimeState  `json:"realtime,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// MSubscribeCommand for client messages
type MSubscribeCommand struct {
	Command   string `json:"command"`
	Timeframe string `json:"timeframe"`
}
