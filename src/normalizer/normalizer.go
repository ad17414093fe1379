package normalizer

import (
	"dashboard-observer/src/models"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Inputs holds the five raw payloads of one primary fetch, as decoded JSON.
type Inputs struct {
	SalesTrends        interface{}
	UserGrowth         interface{}
	ProductPerformance interface{}
	OrderStatus        interface{}
	CustomerRetention  interface{}
}

// -----------------------------------------------------------------------------
// Extractors. Each canonical field owns an ordered list; the first extractor
// that finds a present value wins. Canonical keys come first so that an
// already-normalized record maps onto itself.
// -----------------------------------------------------------------------------

type NumberExtractor struct {
	Name    string
	Extract func(payload interface{}) (float64, bool)
}

type TrendExtractor struct {
	Name    string
	Extract func(payload interface{}) ([]models.MTrendPoint, bool)
}

func key(path ...string) NumberExtractor {
	name := path[0]
	for _, p := range path[1:] {
		name += "." + p
	}
	return NumberExtractor{Name: name, Extract: func(payload interface{}) (float64, bool) {
		return numberAt(payload, path...)
	}}
}

func sumKey(name string, keys ...string) NumberExtractor {
	return NumberExtractor{Name: name, Extract: func(payload interface{}) (float64, bool) {
		items, ok := arrayAt(payload)
		if !ok {
			return 0, false
		}
		return sumOver(items, keys...), true
	}}
}

func statusCount(status string) NumberExtractor {
	return NumberExtractor{Name: "[status=" + status + "].count", Extract: func(payload interface{}) (float64, bool) {
		items, ok := arrayAt(payload)
		if !ok {
			return 0, false
		}
		for _, item := range items {
			if s, ok := firstStringOf(item, "status"); ok && s == status {
				return firstNumberOf(item, "count")
			}
		}
		return 0, false
	}}
}

func trendKey(name string) TrendExtractor {
	return TrendExtractor{Name: name, Extract: func(payload interface{}) ([]models.MTrendPoint, bool) {
		items, ok := arrayAt(payload, name)
		if !ok {
			return nil, false
		}
		return mapTrend(items, []string{"date", "period"}, []string{"value", "sales", "revenue"}), true
	}}
}

var (
	RevenueCurrent = []NumberExtractor{
		key("current"),
		key("totalRevenue"),
		{Name: "sum(data[].sales|revenue)", Extract: func(payload interface{}) (float64, bool) {
			items, ok := arrayAt(payload, "data")
			if !ok {
				return 0, false
			}
			return sumOver(items, "sales", "revenue"), true
		}},
	}
	RevenueGrowth = []NumberExtractor{key("growth"), key("growthRate"), key("summary", "growthRate")}
	RevenueTrend  = []TrendExtractor{
		trendKey("trend"),
		trendKey("trends"),
		{Name: "data[]", Extract: func(payload interface{}) ([]models.MTrendPoint, bool) {
			items, ok := arrayAt(payload, "data")
			if !ok {
				return nil, false
			}
			return mapTrend(items, []string{"period", "date"}, []string{"sales", "revenue"}), true
		}},
	}

	UsersCurrent  = []NumberExtractor{key("current"), key("totalUsers"), sumKey("sum([].totalUsers)", "totalUsers")}
	UsersNewUsers = []NumberExtractor{key("newUsers"), sumKey("sum([].newUsers)", "newUsers")}
	UsersGrowth   = []NumberExtractor{key("growth"), key("growthRate")}
	UsersTrend    = []TrendExtractor{
		trendKey("trend"),
		trendKey("trends"),
		{Name: "[]", Extract: func(payload interface{}) ([]models.MTrendPoint, bool) {
			items, ok := arrayAt(payload)
			if !ok {
				return nil, false
			}
			return mapTrend(items, []string{"date"}, []string{"totalUsers"}), true
		}},
	}

	OrdersCurrent   = []NumberExtractor{key("current"), key("total"), sumKey("sum([].count)", "count")}
	OrdersCompleted = []NumberExtractor{key("completed"), statusCount("COMPLETED")}
	OrdersPending   = []NumberExtractor{key("pending"), statusCount("PENDING")}
	OrdersCancelled = []NumberExtractor{key("cancelled"), statusCount("CANCELLED")}
	OrdersGrowth    = []NumberExtractor{key("growth"), key("growthRate")}

	ProductsTotalViews = []NumberExtractor{key("totalViews")}

	RetentionRate  = []NumberExtractor{key("rate"), key("retentionRate"), key("summary", "customerRetentionRate")}
	RetentionTrend = []TrendExtractor{trendKey("trend")}
)

// -----------------------------------------------------------------------------

func firstNumber(payload interface{}, extractors []NumberExtractor) float64 {
	for _, ex := range extractors {
		if v, ok := ex.Extract(payload); ok {
			return v
		}
	}
	return 0
}

func firstTrend(payload interface{}, extractors []TrendExtractor) []models.MTrendPoint {
	for _, ex := range extractors {
		if v, ok := ex.Extract(payload); ok {
			return v
		}
	}
	return []models.MTrendPoint{}
}

// mapTrend keeps producer order; entries are never re-sorted.
func mapTrend(items []interface{}, dateKeys, valueKeys []string) []models.MTrendPoint {
	out := make([]models.MTrendPoint, 0, len(items))
	for _, item := range items {
		date, _ := firstStringOf(item, dateKeys...)
		value, _ := firstNumberOf(item, valueKeys...)
		out = append(out, models.MTrendPoint{Date: date, Value: value})
	}
	return out
}

// -----------------------------------------------------------------------------

func topSelling(payload interface{}) []models.MTopProduct {
	items, ok := arrayAt(payload, "topSelling")
	if !ok {
		items, ok = arrayAt(payload, "topProducts")
	}
	if !ok {
		items, ok = arrayAt(payload)
	}
	if !ok {
		return []models.MTopProduct{}
	}

	out := make([]models.MTopProduct, 0, len(items))
	for _, item := range items {
		name, _ := firstStringOf(item, "name", "productName")
		sales, _ := firstNumberOf(item, "sales", "quantitySold", "totalSold")
		revenue, _ := firstNumberOf(item, "revenue", "totalRevenue")
		out = append(out, models.MTopProduct{Name: name, Sales: sales, Revenue: revenue})
	}
	return out
}

func categories(payload interface{}) []models.MCategoryShare {
	items, ok := arrayAt(payload, "categories")
	if !ok {
		return []models.MCategoryShare{}
	}

	out := make([]models.MCategoryShare, 0, len(items))
	for _, item := range items {
		name, _ := firstStringOf(item, "name", "categoryName")
		value, _ := firstNumberOf(item, "value", "count")
		out = append(out, models.MCategoryShare{Name: name, Value: value})
	}
	return out
}

// -----------------------------------------------------------------------------

// Normalize maps five payloads of unknown shape onto the canonical record.
// It never fails: anything missing or malformed becomes 0 or an empty list.
func Normalize(in Inputs) *models.MAnalyticsRecord {
	record := &models.MAnalyticsRecord{
		Revenue: models.MRevenueMetrics{
			Current: firstNumber(in.SalesTrends, RevenueCurrent),
			Growth:  firstNumber(in.SalesTrends, RevenueGrowth),
			Trend:   firstTrend(in.SalesTrends, RevenueTrend),
		},
		Users: models.MUserMetrics{
			Current:  firstNumber(in.UserGrowth, UsersCurrent),
			NewUsers: firstNumber(in.UserGrowth, UsersNewUsers),
			Growth:   firstNumber(in.UserGrowth, UsersGrowth),
			Trend:    firstTrend(in.UserGrowth, UsersTrend),
		},
		Orders: models.MOrderMetrics{
			Current:   firstNumber(in.OrderStatus, OrdersCurrent),
			Completed: firstNumber(in.OrderStatus, OrdersCompleted),
			Pending:   firstNumber(in.OrderStatus, OrdersPending),
			Cancelled: firstNumber(in.OrderStatus, OrdersCancelled),
			Growth:    firstNumber(in.OrderStatus, OrdersGrowth),
		},
		Products: models.MProductMetrics{
			TopSelling: topSelling(in.ProductPerformance),
			Categories: categories(in.ProductPerformance),
			TotalViews: firstNumber(in.ProductPerformance, ProductsTotalViews),
		},
		Retention: models.MRetentionMetrics{
			Rate:  firstNumber(in.CustomerRetention, RetentionRate),
			Trend: firstTrend(in.CustomerRetention, RetentionTrend),
		},
	}
	record.EnsureShape()
	return record
}

// -----------------------------------------------------------------------------

// InputsFromRecord splits a record into its five sections as generic JSON,
// the form the backend would send them in.
func InputsFromRecord(record *models.MAnalyticsRecord) (Inputs, error) {
	var in Inputs
	if record == nil {
		return in, nil
	}

	sections := []struct {
		src interface{}
		dst *interface{}
	}{
		{record.Revenue, &in.SalesTrends},
		{record.Users, &in.UserGrowth},
		{record.Products, &in.ProductPerformance},
		{record.Orders, &in.OrderStatus},
		{record.Retention, &in.CustomerRetention},
	}
	for _, s := range sections {
		raw, err := json.Marshal(s.src)
		if err != nil {
			return in, err
		}
		if err := json.Unmarshal(raw, s.dst); err != nil {
			return in, err
		}
	}
	return in, nil
}

// NormalizeRecord runs a whole record back through Normalize. On canonical
// input it returns an equal record.
func NormalizeRecord(record *models.MAnalyticsRecord) (*models.MAnalyticsRecord, error) {
	in, err := InputsFromRecord(record)
	if err != nil {
		return nil, err
	}
	return Normalize(in), nil
}
