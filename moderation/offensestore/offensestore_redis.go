package offensestore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "offense/count/"
var redisLastPrefix string = "offense/last/"

type RedisOffenseStore struct {
	Client *redis.Client
}

func NewRedisOffenseStore(redisURL string) (*RedisOffenseStore, error) {
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
	ros := RedisOffenseStore{
		Client: rdb,
	}
	return &ros, nil
}

func (s *RedisOffenseStore) Increment(ctx context.Context, userID string, now time.Time) (int, error) {
	// bump the count and record the timestamp in a single redis round-trip
	multi := s.Client.Pipeline()
	count := multi.Incr(ctx, redisCountPrefix+userID)
	multi.Set(ctx, redisLastPrefix+userID, now.UTC().Format(time.RFC3339Nano), 0)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(count.Val()), nil
}

func (s *RedisOffenseStore) Count(ctx context.Context, userID string) (int, error) {
	c, err := s.Client.Get(ctx, redisCountPrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisOffenseStore) LastPunished(ctx context.Context, userID string) (time.Time, error) {
	raw, err := s.Client.Get(ctx, redisLastPrefix+userID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, raw)
}
