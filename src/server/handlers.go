package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Analytics
// -----------------------------------------------------------------------------

func (s *APIServer) getAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.AnalyticsState())
}

// -----------------------------------------------------------------------------

func (s *APIServer) refreshAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.Refresh(true))
}

// -----------------------------------------------------------------------------

type timeframeRequest struct {
	Timeframe string `json:"timeframe" binding:"required"`
}

func (s *APIServer) putTimeframe(c *gin.Context) {
	var req timeframeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, helpers.NewValidationError("invalid request body: %v", err))
		return
	}
	tf, err := models.ParseTimeframe(req.Timeframe)
	if err != nil {
		respondError(c, helpers.NewValidationError("%v", err))
		return
	}
	c.JSON(http.StatusOK, s.Service.SetTimeframe(tf))
}

// -----------------------------------------------------------------------------

func (s *APIServer) putDateRange(c *gin.Context) {
	var dr models.MDateRange
	if err := c.ShouldBindJSON(&dr); err != nil {
		respondError(c, helpers.NewValidationError("invalid request body: %v", err))
		return
	}
	if err := validateDate(dr.Start); err != nil {
		respondError(c, err)
		return
	}
	if err := validateDate(dr.End); err != nil {
		respondError(c, err)
		return
	}

	state, err := s.Service.SetDateRange(&dr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// -----------------------------------------------------------------------------

func (s *APIServer) invalidateCache(c *gin.Context) {
	if err := s.Service.InvalidateCache(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSummary(c *gin.Context) {
	summary := s.Service.Summary()
	if summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no analytics loaded yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// -----------------------------------------------------------------------------
// Realtime
// -----------------------------------------------------------------------------

func (s *APIServer) getRealtime(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.RealtimeState())
}

// -----------------------------------------------------------------------------

// getRealtimeHistory returns raw samples, per-window averages when
// ?window=<seconds> is given, or a single series for ?field=<name>.
func (s *APIServer) getRealtimeHistory(c *gin.Context) {
	if field := c.Query("field"); field != "" {
		values, err := s.Service.RealtimeColumn(field)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"field": field, "values": values})
		return
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	window, err := queryInt(c, "window", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	if window > 0 {
		c.JSON(http.StatusOK, gin.H{"windows": s.Service.RealtimeWindows(int64(window))})
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": s.Service.RealtimeHistory(limit)})
}

// -----------------------------------------------------------------------------

type liveModeRequest struct {
	LiveMode *bool `json:"liveMode"`
}

func (s *APIServer) putLiveMode(c *gin.Context) {
	var req liveModeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LiveMode == nil {
		respondError(c, helpers.NewValidationError("body must be {\"liveMode\": true|false}"))
		return
	}
	c.JSON(http.StatusOK, s.Service.StartRealtimePolling(*req.LiveMode))
}

// -----------------------------------------------------------------------------
// Preferences
// -----------------------------------------------------------------------------

func (s *APIServer) getPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.GetPreferences(c.Request.Context()))
}

func (s *APIServer) putPreferences(c *gin.Context) {
	var prefs models.MPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondError(c, helpers.NewValidationError("invalid request body: %v", err))
		return
	}
	saved, err := s.Service.UpdatePreferences(c.Request.Context(), prefs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// -----------------------------------------------------------------------------
// Meta
// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":     redactedConfig(s.Config),
		"timeframes": []models.MTimeframe{models.TimeframeWeek, models.TimeframeMonth, models.TimeframeYear},
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	state := s.Service.AnalyticsState()
	rt := s.Service.RealtimeState()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connectionCount(),
		"uptime":        time.Since(s.startedAt).Round(time.Second).String(),
		"tier":          state.Tier,
		"loading":       state.Loading,
		"latest_update": state.UpdatedAt,
		"live_mode":     rt.LiveMode,
		"last_realtime": rt.LastUpdate,
		"poller":        s.Service.PollerRunning(),
		"error_count":   s.Service.ErrorCount(),
	})
}

// -----------------------------------------------------------------------------

func respondError(c *gin.Context, err error) {
	var ve *helpers.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, helpers.NewValidationError("%s must be a non-negative integer", key)
	}
	return n, nil
}
