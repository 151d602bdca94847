package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in Redis under "<prefix>:<key>".
//
//	Performance: Save is one MULTI/EXEC round trip; Get and Remove are one command each.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the keys (one namespace per
// signed-in device); ttl bounds how long credentials live in Redis, zero keeps them
// until removed.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(k Key) string {
	return s.prefix + ":" + string(k)
}

func (s *RedisStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyAccessToken), accessToken, s.ttl)
		if refreshToken == "" {
			pipe.Del(ctx, s.key(KeyRefreshToken))
			return nil
		}
		pipe.Set(ctx, s.key(KeyRefreshToken), refreshToken, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (string, bool, error) {
	if !validKey(key) {
		return "", false, ErrUnknownKey
	}
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, key Key) error {
	if !validKey(key) {
		return ErrUnknownKey
	}
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) RemoveAll(ctx context.Context) error {
	keys := make([]string, 0, len(Keys))
	for _, k := range Keys {
		keys = append(keys, s.key(k))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
