// Package redisbus publishes outbox messages over Redis pub/sub.
// The channel name is the message topic; availability is a PING.
package redisbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/openlms-dev/openlms/pkg/outbox"
)

type Bus struct {
	client *redis.Client
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Bus) Publish(ctx context.Context, msg outbox.Message) error {
	envelope, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, msg.Topic, envelope).Err()
}
