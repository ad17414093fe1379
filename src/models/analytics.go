package models

// -----------------------------------------------------------------------------
// Canonical analytics record consumed by every dashboard view.
// -----------------------------------------------------------------------------

type MAnalyticsRecord struct {
	Revenue   MRevenueMetrics   `json:"revenue"`
	Users     MUserMetrics      `json:"users"`
	Orders    MOrderMetrics     `json:"orders"`
	Products  MProductMetrics   `json:"products"`
	Retention MRetentionMetrics `json:"retention"`
}

type MTrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type MRevenueMetrics struct {
	Current float64       `json:"current"`
	Growth  float64       `json:"growth"`
	Trend   []MTrendPoint `json:"trend"`
}

type MUserMetrics struct {
	Current  float64       `json:"current"`
	NewUsers float64       `json:"newUsers"`
	Growth   float64       `json:"growth"`
	Trend    []MTrendPoint `json:"trend"`
}

type MOrderMetrics struct {
	Current   float64 `json:"current"`
	Completed float64 `json:"completed"`
	Pending   float64 `json:"pending"`
	Cancelled float64 `json:"cancelled"`
	Growth    float64 `json:"growth"`
}

type MTopProduct struct {
	Name    string  `json:"name"`
	Sales   float64 `json:"sales"`
	Revenue float64 `json:"revenue"`
}

type MCategoryShare struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type MProductMetrics struct {
	TopSelling []MTopProduct    `json:"topSelling"`
	Categories []MCategoryShare `json:"categories"`
	TotalViews float64          `json:"totalViews"`
}

type MRetentionMetrics struct {
	Rate  float64       `json:"rate"`
	Trend []MTrendPoint `json:"trend"`
}

// -----------------------------------------------------------------------------

// EnsureShape replaces nil sequences with empty ones so the record always
// serializes with every key present.
func (r *MAnalyticsRecord) EnsureShape() {
	if r.Revenue.Trend == nil {
		r.Revenue.Trend = []MTrendPoint{}
	}
	if r.Users.Trend == nil {
		r.Users.Trend = []MTrendPoint{}
	}
	if r.Products.TopSelling == nil {
		r.Products.TopSelling = []MTopProduct{}
	}
	if r.Products.Categories == nil {
		r.Products.Categories = []MCategoryShare{}
	}
	if r.Retention.Trend == nil {
		r.Retention.Trend = []MTrendPoint{}
	}
}

// Clone returns a deep copy; records are shared between goroutines and must
// never be mutated after publication.
func (r *MAnalyticsRecord) Clone() *MAnalyticsRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Revenue.Trend = append([]MTrendPoint{}, r.Revenue.Trend...)
	out.Users.Trend = append([]MTrendPoint{}, r.Users.Trend...)
	out.Products.TopSelling = append([]MTopProduct{}, r.Products.TopSelling...)
	out.Products.Categories = append([]MCategoryShare{}, r.Products.Categories...)
	out.Retention.Trend = append([]MTrendPoint{}, r.Retention.Trend...)
	return &out
}
