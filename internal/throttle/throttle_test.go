package throttle

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JandsonS/teste-sub000/internal/clock"
)

func TestLocal(t *testing.T) {
	fc := clock.NewFixed(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	l := &Local{Clock: fc, Interval: 3 * time.Second}
	ctx := context.Background()

	if !l.Allow(ctx, "a") {
		t.Fatal("first call must pass")
	}
	if l.Allow(ctx, "a") {
		t.Fatal("second call within interval must be throttled")
	}
	if !l.Allow(ctx, "b") {
		t.Fatal("keys are independent")
	}
	fc.Advance(3 * time.Second)
	if !l.Allow(ctx, "a") {
		t.Fatal("call after interval must pass")
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := NewRedisClient(RedisOptions{Addr: addr})
	defer client.Close()
	if err := Ping(ctx, client); err != nil {
		t.Fatal(err)
	}
	r := &Redis{Client: client, Interval: time.Second, Prefix: "test:" + uuid.NewString() + ":", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if !r.Allow(ctx, "x") || r.Allow(ctx, "x") {
		t.Fatal("expected exactly one call to pass")
	}
}
