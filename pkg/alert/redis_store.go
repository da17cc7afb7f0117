package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs AlertHistory with a capped Redis list, for deployments
// where the service glue process restarts often behind a load balancer and
// losing in-memory catch-up state on every restart is undesirable. Still
// just a cache: nothing in the reactive engine depends on it being present
// or durable.
type RedisStore struct {
	client   *redis.Client
	instance string
	capacity int64
}

// NewRedisClient builds a go-redis client from a plain "host:port" address,
// the form the CLI's --redis-addr flag takes.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewRedisStore constructs a RedisStore. instance namespaces the Redis key
// the same way the rest of the stack namespaces keys per deployment.
func NewRedisStore(client *redis.Client, instance string, capacity int64) *RedisStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &RedisStore{client: client, instance: instance, capacity: capacity}
}

func (r *RedisStore) key() string {
	return fmt.Sprintf("campusafe:%s:alerts", r.instance)
}

// Record pushes a into the capped list, trimming to capacity.
func (r *RedisStore) Record(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("alert: marshal: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key(), payload)
	pipe.LTrim(ctx, r.key(), -r.capacity, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("alert: record: %w", err)
	}
	return nil
}

// Recent returns up to limit of the most recently recorded alerts, newest
// last.
func (r *RedisStore) Recent(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 || int64(limit) > r.capacity {
		limit = int(r.capacity)
	}
	raw, err := r.client.LRange(ctx, r.key(), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("alert: recent: %w", err)
	}
	out := make([]Alert, 0, len(raw))
	for _, item := range raw {
		var a Alert
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("alert: unmarshal: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
