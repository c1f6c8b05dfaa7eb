package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisQueue carries job IDs from the API to the worker. Push is LPUSH
// and Pop a blocking BRPOP, so IDs come out in submission order.
type RedisQueue struct {
	rdb  *redis.Client
	name string
}

func NewRedisQueue(rdb *redis.Client, name string) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.name, jobID).Err()
}

// Pop blocks until an ID is available or ctx is done.
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.name).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}
