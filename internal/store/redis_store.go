// internal/store/redis_store.go
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisChangeChannel = "secureauth:store:changes"

// RedisStore backs the persistent store with Redis. The change feed rides
// on pub/sub, so every process sharing the store sees writes from the
// others — the closest server-side analogue to a browser storage event.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "secureauth:store:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.client.Publish(ctx, redisChangeChannel, key)
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	r.client.Publish(ctx, redisChangeChannel, key)
	return nil
}

func (r *RedisStore) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, redisChangeChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := make(chan Change, 16)
	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case ch <- Change{Key: msg.Payload}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
