package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:messages - per-window message limit
// - ratelimit:{user_id}:typing - per-window typing indicator limit
// - ratelimit:{ip}:connect - per-window socket connection attempts

// Actions understood by Allow.
const (
	ActionMessage = "message"
	ActionTyping  = "typing"
)

type RateLimitConfig struct {
	MessageLimit int
	TypingLimit  int
	ConnectLimit int
	Window       time.Duration
}

// DefaultRateLimitConfig uses messagesPerMinute for sends and fixed limits
// for the rest.
func DefaultRateLimitConfig(messagesPerMinute int) RateLimitConfig {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 60
	}
	return RateLimitConfig{
		MessageLimit: messagesPerMinute,
		TypingLimit:  120,
		ConnectLimit: 30,
		Window:       time.Minute,
	}
}

// RateLimiter keeps fixed-window counters in Redis so limits hold across
// instances.
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

func (r *RateLimiter) AllowMessage(ctx context.Context, userID uint) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%d:messages", userID)
	return r.checkLimit(ctx, key, r.config.MessageLimit, r.config.Window)
}

func (r *RateLimiter) AllowTyping(ctx context.Context, userID uint) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%d:typing", userID)
	return r.checkLimit(ctx, key, r.config.TypingLimit, r.config.Window)
}

func (r *RateLimiter) AllowConnect(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:connect", ip)
	return r.checkLimit(ctx, key, r.config.ConnectLimit, r.config.Window)
}

// Allow answers for socket actions. Redis errors fail open; unknown actions
// are always allowed.
func (r *RateLimiter) Allow(ctx context.Context, userID uint, action string) bool {
	var (
		res *RateLimitResult
		err error
	)
	switch action {
	case ActionMessage:
		res, err = r.AllowMessage(ctx, userID)
	case ActionTyping:
		res, err = r.AllowTyping(ctx, userID)
	default:
		return true
	}
	if err != nil {
		return true
	}
	return res.Allowed
}

var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		local n = redis.call('INCR', key)
		if n == 1 then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// checkLimit increments and checks the counter atomically.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	ttl, _ := values[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(ttl) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetUser clears the per-user counters.
func (r *RateLimiter) ResetUser(ctx context.Context, userID uint) error {
	keys := []string{
		fmt.Sprintf("ratelimit:%d:messages", userID),
		fmt.Sprintf("ratelimit:%d:typing", userID),
	}
	return r.client.Del(ctx, keys...).Err()
}
