// Package notifications records user notifications and publishes
// real-time events.
package notifications

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish events into Redis channels. Delivery
// to connected clients is left to whatever subscribes to those channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishPlanChat sends a payload to every subscriber of a plan's chat.
func (n *Notifier) PublishPlanChat(ctx context.Context, planID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, PlanChannel(planID), payload).Err()
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// PlanChannel derives the Redis channel name for a plan's chat.
func PlanChannel(planID uint) string {
	return "plan:chat:" + strconv.FormatUint(uint64(planID), 10)
}
