// Package throttle limits gateway searches per reservation.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JandsonS/teste-sub000/internal/clock"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: 10,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Redis allows one call per key per interval across all instances sharing the server.
type Redis struct {
	Client   *redis.Client
	Interval time.Duration
	Prefix   string
	Logger   *slog.Logger
}

func (r *Redis) Allow(ctx context.Context, key string) bool {
	ok, err := r.Client.SetNX(ctx, r.Prefix+key, 1, r.Interval).Result()
	if err != nil {
		// fail open: a redis outage must not freeze reconciliation
		r.Logger.WarnContext(ctx, "throttle unavailable", "key", key, "error", err)
		return true
	}
	return ok
}

// Local is the single-process equivalent of Redis.
type Local struct {
	Clock    clock.Clock
	Interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func (l *Local) Allow(_ context.Context, key string) bool {
	now := l.Clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		l.last = make(map[string]time.Time)
	}
	if t, ok := l.last[key]; ok && now.Sub(t) < l.Interval {
		return false
	}
	l.last[key] = now
	// drop entries that can no longer throttle anything
	if len(l.last) > 4096 {
		for k, t := range l.last {
			if now.Sub(t) >= l.Interval {
				delete(l.last, k)
			}
		}
	}
	return true
}
