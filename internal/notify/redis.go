package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fakecombank/teller/pkg/logger"
)

// Channel is the Redis Pub/Sub channel carrying store change messages.
const Channel = "teller:store:changes"

// RedisNotifier broadcasts changes over Redis Pub/Sub. All views on the
// machine subscribe to one channel; Redis delivers messages to each
// subscriber in publish order, which covers the per-key ordering contract.
type RedisNotifier struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisNotifier creates a Redis-backed notifier
func NewRedisNotifier(client *redis.Client, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: log.WithField("component", "notify"),
	}
}

// Publish announces a change to every subscribed view
func (n *RedisNotifier) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}

	n.logger.Debug("published change", "key", change.Key)
	return nil
}

// Subscribe delivers subsequent changes to handler on a dedicated goroutine
func (n *RedisNotifier) Subscribe(ctx context.Context, handler Handler) (func(), error) {
	pubsub := n.client.Subscribe(ctx, Channel)

	// Confirm the subscription before returning so no publish issued after
	// Subscribe is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()
	go func() {
		for msg := range ch {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Warn("dropping malformed change message", "error", err)
				continue
			}
			handler(change)
		}
	}()

	return func() { pubsub.Close() }, nil
}
