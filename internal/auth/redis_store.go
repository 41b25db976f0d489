package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tathang/foodcourt/internal/redisx"
)

// RedisTokenStore keeps reset codes in redis; the key TTL is the token
// expiry, so expired codes simply vanish.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Save(ctx context.Context, userID, code string, ttl time.Duration) error {
	return s.rdb.Set(ctx, fmt.Sprintf(redisx.KeyResetOTP, userID), code, ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, userID string) (string, error) {
	v, err := s.rdb.Get(ctx, fmt.Sprintf(redisx.KeyResetOTP, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisTokenStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(redisx.KeyResetOTP, userID)).Err()
}
