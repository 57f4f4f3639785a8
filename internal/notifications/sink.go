package notifications

import (
	"context"
	"time"

	"tandem/internal/models"
	"tandem/internal/observability"
)

// Sink stores notifications. Record is idempotent on DedupKey: writing the
// same key twice leaves one record and reports created=false the second time.
type Sink interface {
	Record(ctx context.Context, n models.Notification) (created bool, err error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func prepare(n *models.Notification) error {
	if n.UserID == 0 || n.DedupKey == "" {
		return models.NewValidationError("Notification requires a user and a dedup key")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

func recordWrite(backend string, created bool, err error) {
	result := "created"
	switch {
	case err != nil:
		result = "error"
	case !created:
		result = "duplicate"
	}
	observability.NotificationWrites.WithLabelValues(backend, result).Inc()
}
