package interfaces

import (
	"context"
	"time"

	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------
// IRecordCache caches normalized analytics records per query.
// -----------------------------------------------------------------------------

type IRecordCache interface {
	Get(ctx context.Context, key string) (*models.MAnalyticsRecord, bool, error)

	// -----------------------------------------------------------------------------

	Set(ctx context.Context, key string, record *models.MAnalyticsRecord, ttl time.Duration) error

	// -----------------------------------------------------------------------------

	Invalidate(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// IPreferenceStore is the injected read/write capability for UI preferences.
// -----------------------------------------------------------------------------

type IPreferenceStore interface {
	// Load returns the saved preferences. found is false when nothing has
	// been saved yet, in which case prefs holds the defaults.
	Load(ctx context.Context) (prefs models.MPreferences, found bool, err error)

	// -----------------------------------------------------------------------------

	Save(ctx context.Context, prefs models.MPreferences) error
}
