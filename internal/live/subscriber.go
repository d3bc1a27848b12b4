package live

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
	ws "github.com/gokatarajesh/lightning-rounds/pkg/http/ws"
)

// Broadcaster listens for summary updates on Redis Pub/Sub and forwards them
// to every local WebSocket viewer.
type Broadcaster struct {
	redis   *redis.Client
	hub     broadcaster
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered summary broadcaster.
func NewBroadcaster(redis *redis.Client, hub broadcaster, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "summary_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var summary question.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode summary update payload")
		return
	}

	msg, err := ws.NewMessage(ws.TypeSummaryUpdate, summary)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal summary WS payload")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Msg("failed to broadcast summary update")
	}
}
