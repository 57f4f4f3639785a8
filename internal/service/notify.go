package service

import (
	"context"

	"tandem/internal/middleware"
	"tandem/internal/models"
	"tandem/internal/notifications"

	"go.uber.org/zap"
)

// recordNotification writes n to sink. Notifications are a side effect of
// an operation that has already committed, so failures are logged and
// never returned to the caller.
func recordNotification(ctx context.Context, sink notifications.Sink, n models.Notification) {
	if sink == nil {
		return
	}
	if _, err := sink.Record(ctx, n); err != nil {
		middleware.L(ctx).Warn("failed to record notification",
			zap.String("dedup_key", n.DedupKey),
			zap.Uint("recipient_id", n.UserID),
			zap.Error(err),
		)
	}
}
