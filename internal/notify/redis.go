package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// Broadcaster relays notifications across API instances through a Redis
// pub/sub channel so a recipient connected to any instance gets the push.
type Broadcaster struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewBroadcaster wires a hub to a Redis channel.
func NewBroadcaster(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *Broadcaster {
	if channel == "" {
		channel = "notifications"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish sends the notification to the shared channel. Errors are returned
// for logging only; callers must not fail the triggering write on them.
func (b *Broadcaster) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Listen consumes the shared channel and feeds the local hub until the
// context is cancelled or Close is called.
func (b *Broadcaster) Listen(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.client.Subscribe(ctx, b.channel)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n models.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					b.logger.Warn("discarding malformed notification payload", zap.Error(err))
					continue
				}
				b.hub.Publish(n)
			}
		}
	}()
}

// Close stops the listener.
func (b *Broadcaster) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
