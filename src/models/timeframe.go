package models

import (
	"fmt"
	"strings"
)

// MTimeframe selects both the query granularity and the display label.
type MTimeframe string

const (
	TimeframeWeek  MTimeframe = "week"
	TimeframeMonth MTimeframe = "month"
	TimeframeYear  MTimeframe = "year"
)

// ParseTimeframe accepts the three known timeframes, case-insensitively.
func ParseTimeframe(s string) (MTimeframe, error) {
	switch MTimeframe(strings.ToLower(strings.TrimSpace(s))) {
	case TimeframeWeek:
		return TimeframeWeek, nil
	case TimeframeMonth:
		return TimeframeMonth, nil
	case TimeframeYear:
		return TimeframeYear, nil
	}
	return "", fmt.Errorf("unknown timeframe %q (expected week, month or year)", s)
}

// Granularity is the sales-trends bucket size requested for the timeframe.
func (t MTimeframe) Granularity() string {
	switch t {
	case TimeframeWeek:
		return "daily"
	case TimeframeYear:
		return "monthly"
	default:
		return "weekly"
	}
}

// Days is the user-growth lookback for the timeframe.
func (t MTimeframe) Days() int {
	switch t {
	case TimeframeWeek:
		return 7
	case TimeframeYear:
		return 365
	default:
		return 30
	}
}

func (t MTimeframe) Label() string {
	switch t {
	case TimeframeWeek:
		return "Last 7 days"
	case TimeframeYear:
		return "Last 12 months"
	default:
		return "Last 30 days"
	}
}

// -----------------------------------------------------------------------------

// MDateRange is an optional inclusive date window, formatted YYYY-MM-DD.
type MDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r *MDateRange) IsZero() bool {
	return r == nil || (r.Start == "" && r.End == "")
}

// Key is used to build cache keys and log lines.
func (r *MDateRange) Key() string {
	if r.IsZero() {
		return "all"
	}
	return r.Start + ".." + r.End
}
