// Package ratelimit limits request rates with a Redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is a limit of Requests per Window.
type Config struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// slidingWindow prunes entries older than the window, then admits the request
// if fewer than limit remain. Both keys expire with the window so idle callers
// leave nothing behind.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local counter_key = KEYS[2]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
	local seq = redis.call('INCR', counter_key)
	redis.call('ZADD', key, now, now .. ':' .. seq)
	redis.call('PEXPIRE', key, window_ms)
	redis.call('PEXPIRE', counter_key, window_ms)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry_after = 0
if #oldest >= 2 then
	retry_after = tonumber(oldest[2]) + window_ms - now
end
return {0, 0, retry_after}
`)

// Limiter is a sliding window limiter over a Redis sorted set per key.
type Limiter struct {
	client redis.Scripter
	config Config
	prefix string
	now    func() time.Time
}

// NewLimiter creates a limiter whose keys start with prefix.
func NewLimiter(client redis.Scripter, config Config, prefix string) *Limiter {
	return &Limiter{client: client, config: config, prefix: prefix, now: time.Now}
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	redisKey := l.prefix + key
	windowMs := l.config.Window.Milliseconds()

	values, err := slidingWindow.Run(ctx, l.client,
		[]string{redisKey, redisKey + ":seq"},
		now.UnixMilli(),
		now.Add(-l.config.Window).UnixMilli(),
		l.config.Requests,
		windowMs,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit result length: %d", len(values))
	}

	res := &Result{
		Allowed:   values[0] == 1,
		Limit:     l.config.Requests,
		Remaining: int(values[1]),
		ResetAt:   now.Add(l.config.Window),
	}
	if !res.Allowed && values[2] > 0 {
		res.RetryAfter = time.Duration(values[2]) * time.Millisecond
		res.ResetAt = now.Add(res.RetryAfter)
	}
	return res, nil
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	return l.config
}
