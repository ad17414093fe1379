package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"dashboard-observer/src/cache"
	"dashboard-observer/src/dashboard"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

// APIServer exposes the dashboard state over REST and pushes updates to
// WebSocket clients.
type APIServer struct {
	Config  *models.MConfig
	Service *dashboard.Service
	Limiter *cache.RateLimiter // optional, guards manual refreshes
	Logger  *logger.Logger

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients     map[*Client]struct{}
	broadcast   chan *models.MPushMessage
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	hubRunning  atomic.Bool
	connections atomic.Int64
	startedAt   time.Time
}

var _ interfaces.IDataExchanger = (*APIServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, svc *dashboard.Service, limiter *cache.RateLimiter, log *logger.Logger) *APIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Service: svc,
		Limiter: limiter,
		Logger:  log,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Buffered so state publication never waits on slow clients
		broadcast:  make(chan *models.MPushMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		startedAt:  time.Now(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowLocalOrigin,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/analytics", s.getAnalytics)
	api.POST("/analytics/refresh", s.rateLimit(), s.refreshAnalytics)
	api.PUT("/analytics/timeframe", s.putTimeframe)
	api.PUT("/analytics/date-range", s.putDateRange)
	api.GET("/analytics/summary", s.getSummary)
	api.DELETE("/analytics/cache", s.invalidateCache)

	api.GET("/realtime", s.getRealtime)
	api.GET("/realtime/history", s.getRealtimeHistory)
	api.PUT("/realtime/live", s.putLiveMode)

	api.GET("/preferences", s.getPreferences)
	api.PUT("/preferences", s.putPreferences)

	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler is the HTTP handler, used directly by tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start launches the hub and serves HTTP in the background.
func (s *APIServer) Start() error {
	s.startHub()

	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Starting server on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Critical("HTTP server failed: %v", err)
		}
	}()
	return nil
}

func (s *APIServer) startHub() {
	if s.hubRunning.CompareAndSwap(false, true) {
		go s.runHub()
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	if s.hubRunning.CompareAndSwap(true, false) {
		close(s.done)
	}
	return err
}
