package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCooldownBackend = errors.New("cooldown limiter unavailable")

type CooldownConfig struct {
	Window      time.Duration
	RedisPrefix string
}

// CooldownLimiter enforces a minimum spacing between accepted challenge
// requests per user. The window key is written only on admission, so a
// rejected request never extends the wait.
type CooldownLimiter struct {
	redis  redis.UniversalClient
	config CooldownConfig
}

func NewCooldownLimiter(redisClient redis.UniversalClient, cfg CooldownConfig) *CooldownLimiter {
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "gcd"
	}
	return &CooldownLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *CooldownLimiter) key(userID string) string {
	return l.config.RedisPrefix + ":" + userID
}

// TryAdmit attempts to enter the window. When rejected, remaining is the
// time left until the window opens again.
func (l *CooldownLimiter) TryAdmit(ctx context.Context, userID string) (bool, time.Duration, error) {
	key := l.key(userID)

	// Two passes cover the key expiring between SETNX and PTTL.
	for i := 0; i < 2; i++ {
		ok, err := l.redis.SetNX(ctx, key, 1, l.config.Window).Result()
		if err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrCooldownBackend, err)
		}
		if ok {
			return true, 0, nil
		}

		remaining, err := l.redis.PTTL(ctx, key).Result()
		if err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrCooldownBackend, err)
		}
		if remaining > 0 {
			return false, remaining, nil
		}
	}

	return false, l.config.Window, nil
}
