package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/basta/internal/models"
)

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes events on the pub/sub channel <prefix>:<room_id>
type RedisPublisher struct {
	client redisClient
	prefix string
}

// DialRedis creates a client for addr and checks it with PING
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return NewRedisPublisher(client, prefix), nil
}

// NewRedisPublisher wraps an existing client
func NewRedisPublisher(client redisClient, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel events for roomID are published on
func (p *RedisPublisher) Channel(roomID string) string {
	return p.prefix + ":" + roomID
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.Channel(ev.RoomID.String()), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close closes the client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
