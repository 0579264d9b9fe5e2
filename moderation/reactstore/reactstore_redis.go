package reactstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisReactionPrefix string = "reactions/"

type RedisReactionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisReactionStore(redisURL string, ttl time.Duration) (*RedisReactionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rrs := RedisReactionStore{
		Client: rdb,
		TTL:    ttl,
	}
	return &rrs, nil
}

func (s *RedisReactionStore) Add(ctx context.Context, messageID, userID, emoji string) ([]string, error) {
	key := redisReactionPrefix + trackingKey(messageID, userID)

	// add and refresh expiry in a single redis round-trip
	multi := s.Client.Pipeline()
	multi.SAdd(ctx, key, emoji)
	multi.Expire(ctx, key, s.TTL)
	members := multi.SMembers(ctx, key)
	if _, err := multi.Exec(ctx); err != nil {
		return nil, err
	}
	return members.Result()
}

func (s *RedisReactionStore) Clear(ctx context.Context, messageID, userID string) error {
	key := redisReactionPrefix + trackingKey(messageID, userID)
	return s.Client.Del(ctx, key).Err()
}
