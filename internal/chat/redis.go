package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/contest-engine/internal/models"
)

// DefaultChannel is the pub/sub channel used when none is configured
const DefaultChannel = "contest:chat"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// RedisBroadcaster relays messages across instances through Redis pub/sub
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

// NewRedisBroadcaster connects to Redis and verifies the connection
func NewRedisBroadcaster(ctx context.Context, cfg RedisConfig) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	return &RedisBroadcaster{client: client, channel: channel}, nil
}

// Publish sends msg to every subscribed instance
func (b *RedisBroadcaster) Publish(ctx context.Context, msg *models.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish chat message: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers in the background
func (b *RedisBroadcaster) Subscribe(ctx context.Context, fn func(*models.ChatMessage)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	slog.Info("subscribed to chat channel", "channel", b.channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg models.ChatMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					slog.Warn("dropping malformed chat payload", "channel", b.channel, "error", err)
					continue
				}
				fn(&msg)
			}
		}
	}()

	return nil
}

// HealthCheck verifies Redis connectivity
func (b *RedisBroadcaster) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
