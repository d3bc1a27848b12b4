package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
	ws "github.com/gokatarajesh/lightning-rounds/pkg/http/ws"
)

// DefaultChannel is the Redis Pub/Sub channel carrying summary updates.
const DefaultChannel = "lightning:summary"

type broadcaster interface {
	BroadcastAll(msg ws.Message) error
}

// HubNotifier pushes summary updates straight to this instance's viewers.
type HubNotifier struct {
	hub broadcaster
}

var _ question.Notifier = (*HubNotifier)(nil)

func NewHubNotifier(hub broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) SummaryChanged(_ context.Context, summary question.Summary) error {
	msg, err := ws.NewMessage(ws.TypeSummaryUpdate, summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return n.hub.BroadcastAll(msg)
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes summary updates so every instance's Broadcaster
// can forward them to its own viewers.
type RedisNotifier struct {
	redis   publisher
	channel string
}

var _ question.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(redis publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{redis: redis, channel: channel}
}

func (n *RedisNotifier) SummaryChanged(ctx context.Context, summary question.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := n.redis.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}
