package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wingo/internal/config"
)

// RedisBus broadcasts engine events over a Redis channel. Publish failures
// are logged and dropped; settlement never waits on subscribers.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisBus(cfg config.RedisConfig, logger *zap.Logger) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBus{
		client:  client,
		channel: cfg.Channel,
		logger:  logger,
	}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) {
	if b == nil || b.client == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("event marshal failed", zap.String("type", event.Type), zap.Error(err))
		}
		return
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		if b.logger != nil {
			b.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
		}
	}
}

func (b *RedisBus) Ping(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
