package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis.
type RateLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
}

// RateStatus describes one key after a request was counted.
type RateStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
	Allowed   bool      `json:"-"`
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{Client: client, Limit: limit, Window: window}
}

// -----------------------------------------------------------------------------

// allowScript counts a request and makes sure the window key expires. A key
// found without a TTL gets one, so a failed earlier write cannot pin it.
var allowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Allow counts one request for key. The window starts at the first request.
func (r *RateLimiter) Allow(ctx context.Context, key string) (RateStatus, error) {
	res, err := allowScript.Run(ctx, r.Client, []string{"rl:" + key}, r.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateStatus{}, err
	}
	if len(res) != 2 {
		return RateStatus{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond

	remaining := r.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return RateStatus{
		Limit:     r.Limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl).Truncate(time.Second),
		Allowed:   count <= r.Limit,
	}, nil
}
