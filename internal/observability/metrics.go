// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// MessagesSent counts stored messages by channel (direct, plan).
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_messages_sent_total",
		Help: "Total number of messages stored",
	}, []string{"channel"})

	// FriendshipTransitions counts friendship records entering a status.
	FriendshipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_friendship_transitions_total",
		Help: "Friendship records entering each status",
	}, []string{"status"})

	// InvitationResolutions counts invitation responses by outcome
	// (accepted, declined, conflict).
	InvitationResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_invitation_resolutions_total",
		Help: "Plan invitation responses by outcome",
	}, []string{"outcome"})

	// NotificationWrites counts notification sink writes by backend and result
	// (created, duplicate, error).
	NotificationWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_notification_writes_total",
		Help: "Notification sink writes by backend and result",
	}, []string{"backend", "result"})
)
