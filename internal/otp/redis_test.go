package otp

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runs only against a real server: REDIS_TEST_ADDR=localhost:6379 go test ./internal/otp
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	clk := &fakeClock{t: time.Now()}
	s := NewRedisStore(rdb, "hostel:otp:test", clk)
	key := Key("redis-test@example.com")
	defer s.Delete(ctx, key)

	p := Pending{Email: key, Code: "424242", ExpiresAt: clk.t.Add(5 * time.Minute)}
	if err := s.Put(ctx, key, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := Verify(ctx, s, key, "424242"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	clk.t = clk.t.Add(6 * time.Minute)
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after eviction, got %v", err)
	}
}

func TestRedisStoreCountsWrongCodes(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	clk := &fakeClock{t: time.Now()}
	s := NewRedisStore(rdb, "hostel:otp:test", clk)
	key := Key("redis-attempts@example.com")
	defer s.Delete(ctx, key)

	_ = s.Put(ctx, key, Pending{Email: key, Code: "424242", ExpiresAt: clk.t.Add(5 * time.Minute)})
	for i := 1; i < MaxAttempts; i++ {
		if _, err := Verify(ctx, s, key, "000000"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i, err)
		}
	}
	if _, err := Verify(ctx, s, key, "000000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected too many attempts, got %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected entry to be gone, got %v", err)
	}
}
