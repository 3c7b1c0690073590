package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel canal de Redis compartido por todas las instancias.
const Channel = "productivity_app:realtime"

// RedisBus implementa Bus con PUBLISH/SUBSCRIBE de Redis.
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus construye el bus sobre un cliente existente.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, channel: Channel}
}

// Publish implementa Bus.
func (b *RedisBus) Publish(ctx context.Context, env []byte) error {
	if err := b.client.Publish(ctx, b.channel, env).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Subscribe implementa Bus. Espera la confirmación de la suscripción antes de entregar mensajes.
func (b *RedisBus) Subscribe(ctx context.Context, fn func([]byte)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(msg.Payload))
		}
	}
}
