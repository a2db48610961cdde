// internal/sink/redis.go
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ataxdi-dev/solana-token-monitor/internal/monitor"
)

// RedisPublisher fans confirmed launches out over Redis pub/sub so external
// consumers (bots, alerters) can subscribe without linking this process.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher connects to addr and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr string, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisPublisher{
		client: client,
		logger: logger.Named("redis_sink"),
	}, nil
}

// PublishLaunch publishes the launch snapshot to the broadcast channel and a
// mint-specific channel.
func (p *RedisPublisher) PublishLaunch(ctx context.Context, launch monitor.TokenLaunch) error {
	data, err := json.Marshal(launch)
	if err != nil {
		return fmt.Errorf("failed to marshal launch: %w", err)
	}

	channels := []string{
		"launches:all",
		fmt.Sprintf("launches:mint:%s", launch.Mint),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish launch: %w", err)
	}

	p.logger.Debug("Published launch",
		zap.String("mint", launch.Mint),
		zap.Float64("accumulated_sol", launch.AccumulatedSOL))
	return nil
}

// Announce implements monitor.LaunchListener. Publish failures are logged
// and swallowed; a broken sink must not affect detection.
func (p *RedisPublisher) Announce(launch monitor.TokenLaunch) {
	if err := p.PublishLaunch(context.Background(), launch); err != nil {
		p.logger.Error("Failed to publish launch to redis",
			zap.String("mint", launch.Mint), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
