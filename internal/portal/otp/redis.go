package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "otp:"

	// redisGrace keeps a key alive a little past its expiry so Verify can
	// still report it as expired rather than missing.
	redisGrace = time.Minute
)

// deleteIfUnchanged removes KEYS[1] only while it still holds ARGV[1].
var deleteIfUnchanged = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore keeps one JSON value per email. Keys carry a TTL just past the
// challenge expiry so Redis evicts abandoned challenges by itself.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// or rediss:// URL and checks the server
// answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("otp: parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("otp: connect to redis: %w", err)
	}
	return client, nil
}

func redisKey(email string) string {
	return redisKeyPrefix + domain.NormalizeEmail(email)
}

func keyTTL(c Challenge) time.Duration {
	ttl := time.Until(c.ExpiresAt) + redisGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) Put(ctx context.Context, c Challenge) error {
	c.Email = domain.NormalizeEmail(c.Email)
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(c.Email), b, keyTTL(c)).Err(); err != nil {
		return fmt.Errorf("otp: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (Challenge, error) {
	b, err := s.client.Get(ctx, redisKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("otp: redis get: %w", err)
	}
	var c Challenge
	if err := json.Unmarshal(b, &c); err != nil {
		return Challenge{}, fmt.Errorf("otp: decode challenge: %w", err)
	}
	return c, nil
}

// Update only overwrites a key that still exists.
func (s *RedisStore) Update(ctx context.Context, c Challenge) error {
	c.Email = domain.NormalizeEmail(c.Email)
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, redisKey(c.Email), b, keyTTL(c)).Result()
	if err != nil {
		return fmt.Errorf("otp: redis update: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, redisKey(email)).Err(); err != nil {
		return fmt.Errorf("otp: redis del: %w", err)
	}
	return nil
}

// DeleteExpired scans the otp keyspace and removes challenges whose expiry
// has passed but whose key has not yet been evicted. A key rewritten between
// the read and the delete is left alone.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("otp: redis get: %w", err)
		}
		var c Challenge
		if err := json.Unmarshal(b, &c); err != nil || c.Expired(now) {
			deleted, err := s.deleteIfUnchanged(ctx, key, b)
			if err != nil {
				return n, err
			}
			if deleted {
				n++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("otp: redis scan: %w", err)
	}
	return n, nil
}

func (s *RedisStore) deleteIfUnchanged(ctx context.Context, key string, seen []byte) (bool, error) {
	n, err := deleteIfUnchanged.Run(ctx, s.client, []string{key}, seen).Int()
	if err != nil {
		return false, fmt.Errorf("otp: redis compare-and-delete: %w", err)
	}
	return n > 0, nil
}

// Ping reports whether the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
