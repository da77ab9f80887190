// Package notifications delivers live mod events to WebSocket clients,
// fanned out across instances through Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"forgedb/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const modChannelPrefix = "mods:"

// Event types published on a mod channel.
const (
	EventReviewCreated   = "review.created"
	EventReviewDeleted   = "review.deleted"
	EventReviewReactions = "review.reactions"
)

// Event is the JSON envelope sent to clients watching a mod.
type Event struct {
	Type    string    `json:"type"`
	ModID   string    `json:"modId"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

// ModChannel is the Redis channel carrying events for modID.
func ModChannel(modID string) string {
	return modChannelPrefix + modID
}

// Notifier publishes mod events. With a Redis client it publishes to
// mods:<id>; without one it hands events straight to the local hub.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
}

// NewNotifier creates a Notifier. Either argument may be nil.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishModEvent sends an event to everyone watching modID.
func (n *Notifier) PublishModEvent(ctx context.Context, modID, eventType string, payload any) error {
	if n == nil {
		return nil
	}
	data, err := json.Marshal(Event{Type: eventType, ModID: modID, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if n.rdb != nil {
		return n.rdb.Publish(ctx, ModChannel(modID), data).Err()
	}
	if n.local != nil {
		n.local.Broadcast(modID, data)
	}
	return nil
}

// StartPatternSubscriber subscribes to mods:* and calls onMessage for each
// message until ctx is done. It returns once the subscription is confirmed.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(modID string, payload []byte)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, modChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to mod events: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in mod event subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, modChannelPrefix), []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
