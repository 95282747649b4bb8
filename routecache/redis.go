package routecache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "routecache:"

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a redis-backed route cache so invalidation is shared
// across replicas.
func NewRedisCache(addr, password string, ttl time.Duration) *redisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &redisCache{rdb: rdb, ttl: ttl}
}

func redisKey(path, principal string) string {
	return redisKeyPrefix + path + "|" + principal
}

func (c *redisCache) Get(ctx context.Context, path, principal string) ([]byte, bool) {
	body, err := c.rdb.Get(ctx, redisKey(path, principal)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.WithField("path", path).WithError(err).Warn("Route cache read failed")
		return nil, false
	}
	return body, true
}

func (c *redisCache) Set(ctx context.Context, path, principal string, body []byte) {
	if err := c.rdb.Set(ctx, redisKey(path, principal), body, c.ttl).Err(); err != nil {
		logrus.WithField("path", path).WithError(err).Warn("Route cache write failed")
	}
}

func (c *redisCache) Invalidate(ctx context.Context, path string) {
	log := logrus.WithField("path", path)
	iter := c.rdb.Scan(ctx, 0, redisKeyPrefix+path+"|*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.WithError(err).Warn("Route cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		log.WithError(err).Warn("Route cache invalidation scan failed")
	}
}
