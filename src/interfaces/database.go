package interfaces

import "dashboard-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveAnalyticsSnapshot stores one published analytics state.
	SaveAnalyticsSnapshot(state *models.MAnalyticsState) error

	// -----------------------------------------------------------------------------

	// LatestAnalyticsSnapshot returns the newest stored state for a timeframe, or nil.
	LatestAnalyticsSnapshot(timeframe models.MTimeframe) (*models.MAnalyticsState, error)

	// -----------------------------------------------------------------------------

	// SaveRealtimeSample stores one poll result.
	SaveRealtimeSample(sample models.MRealtimeSample) error

	// -----------------------------------------------------------------------------

	// RecentRealtimeSamples returns up to limit samples, oldest first.
	RecentRealtimeSamples(limit int) ([]models.MRealtimeSample, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
