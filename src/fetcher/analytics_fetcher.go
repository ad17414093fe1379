package fetcher

import (
	"context"
	"fmt"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
	"dashboard-observer/src/normalizer"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AnalyticsFetcher runs one request through the primary, fallback and mock
// tiers. It never returns an error: the outcome always carries a record unless
// the run was cancelled.
type AnalyticsFetcher struct {
	API       interfaces.IAnalyticsAPI
	Cache     interfaces.IRecordCache // optional
	CacheTTL  time.Duration
	KeyPrefix string
	Logger    *logger.Logger
	Clock     clock.Clock

	// Mock supplies the tier-3 record.
	Mock func() *models.MAnalyticsRecord
}

// -----------------------------------------------------------------------------

func NewAnalyticsFetcher(api interfaces.IAnalyticsAPI, cache interfaces.IRecordCache, cfg *models.MConfig, log *logger.Logger) *AnalyticsFetcher {
	if log == nil {
		log = logger.NewLogger(cfg, "AnalyticsFetcher")
	}
	f := &AnalyticsFetcher{
		API:       api,
		Cache:     cache,
		KeyPrefix: "dashboard",
		Logger:    log,
		Clock:     clock.New(),
		Mock:      MockDataset,
	}
	if cfg != nil {
		f.CacheTTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
		if cfg.Cache.KeyPrefix != "" {
			f.KeyPrefix = cfg.Cache.KeyPrefix
		}
	}
	return f
}

// -----------------------------------------------------------------------------

// CacheKey identifies one (timeframe, date range) query.
func (f *AnalyticsFetcher) CacheKey(tf models.MTimeframe, dr *models.MDateRange) string {
	return fmt.Sprintf("%s:analytics:%s:%s", f.KeyPrefix, tf, dr.Key())
}

// -----------------------------------------------------------------------------

// Fetch resolves one record. force skips the cache lookup.
func (f *AnalyticsFetcher) Fetch(ctx context.Context, tf models.MTimeframe, dr *models.MDateRange, force bool) *models.MFetchResult {
	result := &models.MFetchResult{
		RunID:     uuid.NewString(),
		Timeframe: tf,
		DateRange: dr,
		Started:   f.Clock.Now(),
	}
	defer func() { result.Finished = f.Clock.Now() }()

	if !force {
		if record, ok := f.cached(ctx, tf, dr); ok {
			result.Record = record
			result.Tier = models.TierPrimary
			result.Cached = true
			return result
		}
	}

	// Tier 1
	record, primaryErr := f.FetchPrimary(ctx, tf, dr)
	if primaryErr == nil {
		result.Record = record
		result.Tier = models.TierPrimary
		f.store(ctx, tf, dr, record)
		return result
	}
	result.Err = primaryErr
	if ctx.Err() != nil {
		f.Logger.Debug("Run %s cancelled: %v", result.RunID, ctx.Err())
		return result
	}
	f.Logger.Warning("Primary analytics fetch failed (%s): %v", tf, primaryErr)

	// Tier 2
	record, fallbackErr := f.API.GetDashboardAnalytics(ctx, tf)
	if fallbackErr == nil && record != nil {
		record.EnsureShape()
		result.Record = record
		result.Tier = models.TierFallback
		return result
	}
	if fallbackErr == nil {
		fallbackErr = fmt.Errorf("empty dashboard analytics response")
	}
	if ctx.Err() != nil {
		return result
	}

	// Tier 3
	f.Logger.Error("%v (fallback: %v)", helpers.NewExhaustedFallbackError(primaryErr, fallbackErr), fallbackErr)
	result.Record = f.Mock()
	result.Tier = models.TierMock
	return result
}

// -----------------------------------------------------------------------------

// FetchPrimary issues the five requests concurrently and normalizes them.
// Any single failure fails the batch.
func (f *AnalyticsFetcher) FetchPrimary(ctx context.Context, tf models.MTimeframe, dr *models.MDateRange) (*models.MAnalyticsRecord, error) {
	var in normalizer.Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		in.SalesTrends, err = f.API.GetSalesTrends(gctx, tf.Granularity(), tf.Days(), dr)
		return wrapOp("sales trends", err)
	})
	g.Go(func() (err error) {
		in.UserGrowth, err = f.API.GetUserGrowth(gctx, tf.Days(), dr)
		return wrapOp("user growth", err)
	})
	g.Go(func() (err error) {
		in.ProductPerformance, err = f.API.GetProductPerformance(gctx, dr)
		return wrapOp("product performance", err)
	})
	g.Go(func() (err error) {
		in.OrderStatus, err = f.API.GetOrderStatusDistribution(gctx, dr)
		return wrapOp("order status distribution", err)
	})
	g.Go(func() (err error) {
		in.CustomerRetention, err = f.API.GetCustomerRetention(gctx, dr)
		return wrapOp("customer retention", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return normalizer.Normalize(in), nil
}

func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// -----------------------------------------------------------------------------

func (f *AnalyticsFetcher) cached(ctx context.Context, tf models.MTimeframe, dr *models.MDateRange) (*models.MAnalyticsRecord, bool) {
	if f.Cache == nil {
		return nil, false
	}
	record, ok, err := f.Cache.Get(ctx, f.CacheKey(tf, dr))
	if err != nil {
		f.Logger.Warning("Cache read failed: %v", err)
		return nil, false
	}
	return record, ok
}

func (f *AnalyticsFetcher) store(ctx context.Context, tf models.MTimeframe, dr *models.MDateRange, record *models.MAnalyticsRecord) {
	if f.Cache == nil || f.CacheTTL <= 0 {
		return
	}
	if err := f.Cache.Set(ctx, f.CacheKey(tf, dr), record, f.CacheTTL); err != nil {
		f.Logger.Warning("Cache write failed: %v", err)
	}
}
