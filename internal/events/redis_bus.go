package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"marketplace-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus implements Publisher and Subscriber using Redis Pub/Sub.
type RedisBus struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisBus(client *redis.Client, l *logger.Logger) *RedisBus {
	if l == nil {
		l = logger.NewNop()
	}
	return &RedisBus{client: client, logger: l}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, patterns []string, handler func(channel string, env Envelope)) error {
	sub := b.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Logger.Warn("dropping malformed envelope",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			handler(msg.Channel, env)
		}
	}
}
