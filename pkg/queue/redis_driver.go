package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ordersvc:queue:"

// RedisDriver keeps one list per queue. Producers LPUSH, workers BRPOP, so
// each queue is FIFO.
type RedisDriver struct {
	rdb redis.UniversalClient
}

// NewRedisDriver wraps the same client the cache uses.
func NewRedisDriver(rdb redis.UniversalClient) *RedisDriver {
	return &RedisDriver{rdb: rdb}
}

func (d *RedisDriver) Push(ctx context.Context, queue string, body []byte) error {
	if err := d.rdb.LPush(ctx, redisKeyPrefix+queue, body).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context, queues []string) (string, []byte, error) {
	keys := make([]string, len(queues))
	for i, q := range queues {
		keys[i] = redisKeyPrefix + q
	}

	result, err := d.rdb.BRPop(ctx, PollTimeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, ErrNoJob
		}
		if errors.Is(err, redis.ErrClosed) {
			return "", nil, ErrClosed
		}
		return "", nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return "", nil, ErrNoJob
	}
	return strings.TrimPrefix(result[0], redisKeyPrefix), []byte(result[1]), nil
}

// Size reports the number of pending messages on queue.
func (d *RedisDriver) Size(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, redisKeyPrefix+queue).Result()
}

// Close is a no-op; the client belongs to whoever created it.
func (d *RedisDriver) Close() error { return nil }
