package redis

import (
	"context"
	"crypto/tls"

	"github.com/redis/go-redis/v9"
	"github.com/zlnvch/drawguess/store"
)

// RedisRegion is a durable region kept in Redis. Keys never expire; they are
// removed only through Delete.
type RedisRegion struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisRegion(ctx context.Context, devMode bool, redisEndpoint string, namespace string) (*RedisRegion, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:      redisEndpoint,
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisRegionFromClient(client, namespace), nil
}

func NewRedisRegionFromClient(client redis.UniversalClient, namespace string) *RedisRegion {
	return &RedisRegion{client: client, namespace: namespace}
}

// Hash tag keeps all keys of one namespace in the same cluster slot.
func (r *RedisRegion) buildKey(key string) string {
	return "drawguess:{" + r.namespace + "}:" + key
}

func (r *RedisRegion) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.buildKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", store.ErrItemNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *RedisRegion) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, r.buildKey(key), value, 0).Err()
}

func (r *RedisRegion) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.buildKey(key)).Err()
}

func (r *RedisRegion) Close() error {
	return r.client.Close()
}
