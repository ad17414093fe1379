package storage

import (
	"time"

	"dashboard-observer/src/models"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotRow is the column layout shared by the SQL backends.
type snapshotRow struct {
	RunID      string
	Timeframe  string
	DateRange  string
	Tier       string
	Generation int64
	Error      string
	Cached     bool
	CreatedAt  int64
	Record     string
}

// -----------------------------------------------------------------------------

func encodeSnapshot(state *models.MAnalyticsState) (snapshotRow, error) {
	raw, err := json.Marshal(state.Record)
	if err != nil {
		return snapshotRow{}, err
	}

	created := state.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return snapshotRow{
		RunID:      state.RunID,
		Timeframe:  string(state.Timeframe),
		DateRange:  state.DateRange.Key(),
		Tier:       string(state.Tier),
		Generation: int64(state.Generation),
		Error:      state.Error,
		Cached:     state.Cached,
		CreatedAt:  created.UTC().Unix(),
		Record:     string(raw),
	}, nil
}

// -----------------------------------------------------------------------------

func decodeSnapshot(row snapshotRow) (*models.MAnalyticsState, error) {
	var record models.MAnalyticsRecord
	if err := json.Unmarshal([]byte(row.Record), &record); err != nil {
		return nil, err
	}
	record.EnsureShape()

	state := &models.MAnalyticsState{
		Record:     &record,
		Tier:       models.MTier(row.Tier),
		Timeframe:  models.MTimeframe(row.Timeframe),
		Generation: uint64(row.Generation),
		RunID:      row.RunID,
		Error:      row.Error,
		Cached:     row.Cached,
		UpdatedAt:  time.Unix(row.CreatedAt, 0).UTC(),
	}
	if start, end, ok := splitRange(row.DateRange); ok {
		state.DateRange = &models.MDateRange{Start: start, End: end}
	}
	return state, nil
}

func splitRange(key string) (string, string, bool) {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == '.' && key[i+1] == '.' {
			return key[:i], key[i+2:], true
		}
	}
	return "", "", false
}

// -----------------------------------------------------------------------------

func retentionCutoff(now time.Time, days int) int64 {
	return now.UTC().AddDate(0, 0, -days).Unix()
}
