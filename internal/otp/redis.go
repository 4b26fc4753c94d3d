package otp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// expiredGrace keeps a Redis entry past its expiry so a late verify can be
// told "expired" rather than "not found".
const expiredGrace = 10 * time.Minute

// attemptsTTL bounds the life of a wrong-code counter; Put and Delete
// clear it explicitly.
const attemptsTTL = time.Hour

// RedisStore keeps pending registrations as JSON strings under
// prefix:email with a TTL of the entry's lifetime plus a grace period.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	clock  Clock
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client, prefix string, clock Clock) *RedisStore {
	if prefix == "" {
		prefix = "hostel:otp"
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &RedisStore{rdb: rdb, prefix: prefix, clock: clock}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) attemptsKey(k string) string { return s.prefix + ":attempts:" + k }

func (s *RedisStore) Put(ctx context.Context, key string, p Pending) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := p.ExpiresAt.Sub(s.clock.Now()) + expiredGrace
	if ttl <= 0 {
		ttl = time.Second
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(key), body, ttl)
	pipe.Del(ctx, s.attemptsKey(key))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) (Pending, error) {
	body, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrNotFound
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal(body, &p); err != nil {
		return Pending{}, err
	}
	if !s.clock.Now().Before(p.ExpiresAt) {
		_ = s.rdb.Del(ctx, s.key(key), s.attemptsKey(key)).Err()
		return Pending{}, ErrExpired
	}
	return p, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key), s.attemptsKey(key)).Err()
}

// Fail increments the wrong-code counter with INCR so concurrent guesses
// are all counted.
func (s *RedisStore) Fail(ctx context.Context, key string) (int, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, s.attemptsKey(key))
	pipe.Expire(ctx, s.attemptsKey(key), attemptsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
