package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"dashboard-observer/src/backend"
	"dashboard-observer/src/fetcher"
	"dashboard-observer/src/logger"

	"github.com/gin-gonic/gin"
)

// mockbackend serves the shop analytics endpoints with plausible payloads in
// the shapes the real backend uses, so the observer can run locally.
// Endpoints listed in -fail answer 503 to exercise the fallback tiers.

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	fail := flag.String("fail", "", "comma separated paths that answer 503, or \"all\"")
	flag.Parse()

	log := logger.NewLogger(nil, "MockBackend")
	failing := map[string]bool{}
	for _, p := range strings.Split(*fail, ",") {
		if p = strings.TrimSpace(p); p != "" {
			failing[p] = true
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		if failing["all"] || failing[c.Request.URL.Path] {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "injected failure"})
			return
		}
		c.Next()
	})

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ref := fetcher.MockDataset()

	r.GET(backend.PathSalesTrends, func(c *gin.Context) {
		data := make([]gin.H, 0, len(ref.Revenue.Trend))
		for _, p := range ref.Revenue.Trend {
			data = append(data, gin.H{"period": p.Date, "sales": p.Value * (0.9 + rng.Float64()*0.2)})
		}
		c.JSON(http.StatusOK, gin.H{
			"timeframe": c.Query("timeframe"),
			"data":      data,
			"summary":   gin.H{"growthRate": ref.Revenue.Growth},
		})
	})

	r.GET(backend.PathUserGrowth, func(c *gin.Context) {
		rows := make([]gin.H, 0, len(ref.Users.Trend))
		for _, p := range ref.Users.Trend {
			rows = append(rows, gin.H{"date": p.Date, "totalUsers": p.Value, "newUsers": float64(rng.Intn(400))})
		}
		c.JSON(http.StatusOK, rows)
	})

	r.GET(backend.PathProductPerf, func(c *gin.Context) {
		rows := make([]gin.H, 0, len(ref.Products.TopSelling))
		for _, p := range ref.Products.TopSelling {
			rows = append(rows, gin.H{"productName": p.Name, "quantitySold": p.Sales, "totalRevenue": p.Revenue})
		}
		c.JSON(http.StatusOK, gin.H{"topProducts": rows, "categories": ref.Products.Categories, "totalViews": ref.Products.TotalViews})
	})

	r.GET(backend.PathOrderStatus, func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"status": "COMPLETED", "count": ref.Orders.Completed},
			{"status": "PENDING", "count": ref.Orders.Pending},
			{"status": "CANCELLED", "count": ref.Orders.Cancelled},
		})
	})

	r.GET(backend.PathCustomerRetention, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"summary": gin.H{"customerRetentionRate": ref.Retention.Rate}})
	})

	r.GET(backend.PathDashboard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": ref})
	})

	r.GET(backend.PathRealtimeMetrics, func(c *gin.Context) {
		// conversionRate is left out on purpose so the observer samples it
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"onlineUsers":  45 + rng.Intn(25),
			"activeOrders": 12 + rng.Intn(8),
			"recentSales":  150000 + rng.Intn(50000),
		}})
	})

	log.Info("Mock shop backend listening on http://%s", *addr)
	if err := r.Run(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "mock backend failed: %v\n", err)
		os.Exit(1)
	}
}
