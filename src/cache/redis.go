package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewRedisClient parses the URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// -----------------------------------------------------------------------------
// RedisRecordCache stores normalized records as JSON under prefixed keys.
// -----------------------------------------------------------------------------

type RedisRecordCache struct {
	Client *redis.Client
	Prefix string
}

var _ interfaces.IRecordCache = (*RedisRecordCache)(nil)

func NewRedisRecordCache(client *redis.Client, prefix string) *RedisRecordCache {
	return &RedisRecordCache{Client: client, Prefix: prefix}
}

// -----------------------------------------------------------------------------

func (c *RedisRecordCache) Get(ctx context.Context, key string) (*models.MAnalyticsRecord, bool, error) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var record models.MAnalyticsRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// a corrupt entry is a miss
		c.Client.Del(ctx, key)
		return nil, false, nil
	}
	record.EnsureShape()
	return &record, true, nil
}

// -----------------------------------------------------------------------------

func (c *RedisRecordCache) Set(ctx context.Context, key string, record *models.MAnalyticsRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, raw, ttl).Err()
}

// -----------------------------------------------------------------------------

// Invalidate deletes every cached record under the prefix.
func (c *RedisRecordCache) Invalidate(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, c.Prefix+":analytics:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

// -----------------------------------------------------------------------------
// RedisPreferenceStore keeps UI preferences as one JSON value without expiry.
// -----------------------------------------------------------------------------

type RedisPreferenceStore struct {
	Client *redis.Client
	Key    string
}

var _ interfaces.IPreferenceStore = (*RedisPreferenceStore)(nil)

func NewRedisPreferenceStore(client *redis.Client, prefix string) *RedisPreferenceStore {
	return &RedisPreferenceStore{Client: client, Key: prefix + ":preferences"}
}

func (s *RedisPreferenceStore) Load(ctx context.Context) (models.MPreferences, bool, error) {
	raw, err := s.Client.Get(ctx, s.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.DefaultPreferences(), false, nil
	}
	if err != nil {
		return models.DefaultPreferences(), false, err
	}

	prefs := models.DefaultPreferences()
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return models.DefaultPreferences(), false, fmt.Errorf("corrupt preferences: %w", err)
	}
	return prefs, true, nil
}

func (s *RedisPreferenceStore) Save(ctx context.Context, prefs models.MPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Key, raw, 0).Err()
}
