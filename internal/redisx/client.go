package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Store is the small key/value surface the issuer and webhook rely on.
type Store struct{ RDB *redis.Client }

// Claim sets key only if absent. The first caller gets true.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops a claim so the work can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}

// Get reports ok=false for a missing key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.RDB.Set(ctx, key, value, ttl).Err()
}
