package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/miniquinox/billsync/internal/log"
)

// RedisPublisher queues events on a Redis list for a RedisConsumer.
type RedisPublisher struct {
	client *redis.Client
	key    string
}

func NewRedisPublisher(client *redis.Client, key string) *RedisPublisher {
	return &RedisPublisher{client: client, key: key}
}

func (p *RedisPublisher) Publish(ctx context.Context, event RowInserted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("trigger/redis: encode event: %w", err)
	}

	if err := p.client.LPush(ctx, p.key, payload).Err(); err != nil {
		return fmt.Errorf("trigger/redis: push event: %w", err)
	}
	return nil
}

// RedisConsumer pops events pushed by RedisPublisher, oldest first.
type RedisConsumer struct {
	client  *redis.Client
	key     string
	handler Handler
	logger  *log.Logger

	// PollTimeout bounds each BRPOP so cancellation is noticed.
	PollTimeout time.Duration
	// ErrorBackoff is the pause after a Redis error.
	ErrorBackoff time.Duration
}

func NewRedisConsumer(client *redis.Client, key string, handler Handler, logger *log.Logger) *RedisConsumer {
	return &RedisConsumer{
		client:       client,
		key:          key,
		handler:      handler,
		logger:       logger.WithComponent("trigger.redis_consumer"),
		PollTimeout:  time.Second,
		ErrorBackoff: time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (c *RedisConsumer) Run(ctx context.Context) error {
	c.logger.Info("Trigger consumer started", "key", c.key)

	for {
		if ctx.Err() != nil {
			c.logger.Info("Trigger consumer stopped", "key", c.key)
			return nil
		}

		if err := c.consumeOne(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}

			c.logger.Error("Failed to pop trigger event", "error", err, "key", c.key)
			select {
			case <-ctx.Done():
			case <-time.After(c.ErrorBackoff):
			}
		}
	}
}

func (c *RedisConsumer) consumeOne(ctx context.Context) error {
	values, err := c.client.BRPop(ctx, c.PollTimeout, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	// BRPOP answers [key, value].
	if len(values) != 2 {
		return fmt.Errorf("trigger/redis: unexpected reply length %d", len(values))
	}

	var event RowInserted
	if err := json.Unmarshal([]byte(values[1]), &event); err != nil {
		c.logger.Error("Dropping malformed trigger event", "error", err)
		return nil
	}

	eventCtx := log.WithCorrelationID(ctx, log.GenerateCorrelationID())
	if err := c.handler(eventCtx, event); err != nil {
		c.logger.WithCorrelationID(eventCtx).Error("Trigger handler failed",
			"error", err,
			"table", event.Table,
			"record_id", event.Record.ID,
		)
	}
	return nil
}
