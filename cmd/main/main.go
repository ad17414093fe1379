package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-observer/src/cache"
	"dashboard-observer/src/config"
	"dashboard-observer/src/dashboard"
	"dashboard-observer/src/fetcher"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/poller"
	"dashboard-observer/src/server"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 4. Setup Components
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	api, err := setupBackend(conf.MConfig)
	if err != nil {
		appLogger.Critical("Invalid backend configuration: %v", err)
	}

	redisClient := setupRedis(ctx, conf.MConfig, appLogger)
	var recordCache interfaces.IRecordCache
	var prefs interfaces.IPreferenceStore = cache.NewMemoryPreferenceStore()
	var limiter *cache.RateLimiter
	if redisClient != nil {
		defer redisClient.Close()
		recordCache = cache.NewRedisRecordCache(redisClient, conf.Cache.KeyPrefix)
		prefs = cache.NewRedisPreferenceStore(redisClient, conf.Cache.KeyPrefix)
		if conf.Cache.RefreshRateLimit > 0 {
			limiter = cache.NewRateLimiter(redisClient, conf.Cache.RefreshRateLimit, time.Minute)
		}
	}

	// 5. Pipeline
	analyticsFetcher := fetcher.NewAnalyticsFetcher(api, recordCache, conf.MConfig, logger.NewLogger(conf, "Fetcher"))
	realtimePoller := poller.NewRealtimePoller(api, conf.MConfig, logger.NewLogger(conf, "RealtimePoller"))
	realtimePoller.Storage = db

	svc := dashboard.NewService(conf.MConfig, analyticsFetcher, realtimePoller, logger.NewLogger(conf, "Dashboard"))
	svc.Storage = db
	svc.Preferences = prefs

	// 6. Push targets
	srv := server.NewAPIServer(conf.MConfig, svc, limiter, logger.NewLogger(conf, "APIServer"))
	exchangers := []interfaces.IDataExchanger{srv}
	if pub := setupMessaging(ctx, conf.MConfig, appLogger); pub != nil {
		exchangers = append(exchangers, pub)
	}
	for _, ex := range exchangers {
		if err := ex.Start(); err != nil {
			appLogger.Critical("Failed to start push target: %v", err)
		}
		svc.AddExchanger(ex)
	}

	grpcServer, err := startGRPC(conf, svc, *configPath, appLogger)
	if err != nil {
		appLogger.Critical("%v", err)
	}

	// 7. Run
	if err := svc.Start(ctx); err != nil {
		appLogger.Critical("Failed to start dashboard service: %v", err)
	}
	appLogger.Info("Dashboard observer running")

	<-ctx.Done()

	// 8. Shutdown, reverse order
	appLogger.Info("Shutting down...")
	grpcServer.GracefulStop()
	if err := svc.Stop(); err != nil {
		appLogger.Error("Error stopping dashboard service: %v", err)
	}
	for _, ex := range exchangers {
		if err := ex.Stop(); err != nil {
			appLogger.Error("Error stopping push target: %v", err)
		}
	}
	appLogger.Info("Shutdown complete.")
}
