package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an online mark survives without being refreshed.
// A client that crashes without calling MarkOffline goes dark once the key
// expires instead of appearing online forever.
const DefaultTTL = 30 * time.Minute

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func onlineKey(userId int) string {
	return fmt.Sprintf("chat:online:%d", userId)
}

func (s *RedisStore) MarkOnline(ctx context.Context, userId, peerId int) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, onlineKey(userId), peerId)
	pipe.Expire(ctx, onlineKey(userId), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark online: %w", err)
	}

	return nil
}

func (s *RedisStore) MarkOffline(ctx context.Context, userId int) error {
	if err := s.rdb.Del(ctx, onlineKey(userId)).Err(); err != nil {
		return fmt.Errorf("mark offline: %w", err)
	}

	return nil
}

func (s *RedisStore) IsOnline(ctx context.Context, userId, peerId int) (bool, error) {
	online, err := s.rdb.SIsMember(ctx, onlineKey(peerId), userId).Result()
	if err != nil {
		return false, fmt.Errorf("check online: %w", err)
	}

	return online, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
