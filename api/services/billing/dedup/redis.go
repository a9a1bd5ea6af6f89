package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "billing:webhook-event:"

// RedisSet shares claims across replicas with SET NX EX.
type RedisSet struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSet(client *redis.Client, ttl time.Duration) *RedisSet {
	return &RedisSet{client: client, ttl: ttl}
}

func (s *RedisSet) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+id, time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisSet) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", id, err)
	}
	return nil
}
