package main

import (
	"context"
	"time"

	"dashboard-observer/src/backend"
	"dashboard-observer/src/cache"
	"dashboard-observer/src/helpers"
	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/messaging"
	"dashboard-observer/src/models"
	"dashboard-observer/src/network"
	"dashboard-observer/src/storage"

	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 3
	connectDelay    = 500 * time.Millisecond
)

// -----------------------------------------------------------------------------

// setupDatabase initializes the configured storage; nil when disabled.
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	dbLogger := logger.NewLogger(config, "Storage")
	db, err := storage.New(config, dbLogger)
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if db == nil {
		appLogger.Info("Storage disabled")
		return nil, nil
	}
	if err := db.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupBackend builds the authenticated client for the shop analytics API.
func setupBackend(config *models.MConfig) (*backend.AnalyticsSource, error) {
	netMgr, err := network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
	if err != nil {
		return nil, err
	}
	return backend.NewAnalyticsSource(netMgr, logger.NewLogger(config, "AnalyticsSource")), nil
}

// -----------------------------------------------------------------------------

// setupRedis connects to Redis when caching is enabled; nil otherwise.
func setupRedis(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) *redis.Client {
	if !config.Cache.Enabled {
		return nil
	}

	client, err := helpers.RetryWithBackoff(ctx, connectAttempts, connectDelay, func(ctx context.Context) (*redis.Client, error) {
		return cache.NewRedisClient(ctx, config.Cache.RedisURL)
	})
	if err != nil {
		// The dashboard works without a cache, only slower.
		appLogger.Warning("Redis unavailable, running without cache: %v", err)
		return nil
	}
	appLogger.Info("Connected to Redis")
	return client
}

// -----------------------------------------------------------------------------

// setupMessaging connects the AMQP publisher when messaging is enabled.
func setupMessaging(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) *messaging.AMQPPublisher {
	if !config.Messaging.Enabled {
		return nil
	}

	pubLogger := logger.NewLogger(config, "AMQPPublisher")
	pub, err := helpers.RetryWithBackoff(ctx, connectAttempts, connectDelay, func(ctx context.Context) (*messaging.AMQPPublisher, error) {
		return messaging.Dial(config.Messaging.AMQPURL, config.Messaging.Exchange, pubLogger)
	})
	if err != nil {
		appLogger.Warning("Broker unavailable, events will not be published: %v", err)
		return nil
	}
	return pub
}
