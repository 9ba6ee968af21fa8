package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRelay forwards every event as JSON to a Redis pub/sub channel so
// other processes can follow ticket activity.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay returns nil when client is nil or channel is empty.
func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if client == nil || channel == "" {
		return nil
	}
	return &RedisRelay{client: client, channel: channel}
}

// Attach subscribes the relay to all event types.
func (r *RedisRelay) Attach(d Dispatcher) {
	if r == nil || d == nil {
		return
	}
	SubscribeAll(d, r.Forward)
}

// Forward publishes a single event.
func (r *RedisRelay) Forward(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		return fmt.Errorf("relay event %s: %w", event.ID, err)
	}
	return nil
}
