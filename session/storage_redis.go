package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists session records in Redis under "<prefix>:<namespace>".
//
//	Performance: 1 Redis command per call.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a [RedisStorage]. A zero ttl keeps records until they
// are deleted.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStorage{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) key(namespace string) string {
	return s.prefix + ":" + namespace
}

func (s *RedisStorage) Load(ctx context.Context, namespace string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(namespace)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return data, nil
}

func (s *RedisStorage) Save(ctx context.Context, namespace string, data []byte) error {
	if err := s.redis.Set(ctx, s.key(namespace), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Delete is idempotent.
func (s *RedisStorage) Delete(ctx context.Context, namespace string) error {
	if err := s.redis.Del(ctx, s.key(namespace)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
