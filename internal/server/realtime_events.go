package server

import (
	"context"
	"encoding/json"

	"tandem/internal/middleware"
	"tandem/internal/models"

	"go.uber.org/zap"
)

// Event type constants prevent typos in event names.
const (
	EventMessageReceived       = "message_received"
	EventFriendRequestReceived = "friend_request_received"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventInvitationReceived    = "plan_invitation_received"
	EventInvitationAccepted    = "plan_invitation_accepted"
	EventPlanMessageCreated    = "plan_message_created"
)

func encodeEvent(eventType string, payload map[string]interface{}) (string, bool) {
	eventJSON, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		middleware.Logger.Warn("failed to marshal event", zap.String("event", eventType), zap.Error(err))
		return "", false
	}
	return string(eventJSON), true
}

// publishUserEvent pushes an event onto the user's Redis channel. Failures
// are logged and never affect the request.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) {
	message, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}
	if err := s.notifier.PublishUser(context.WithoutCancel(ctx), userID, message); err != nil {
		middleware.L(ctx).Warn("failed to publish user event",
			zap.String("event", eventType),
			zap.Uint("target_user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *Server) publishPlanEvent(ctx context.Context, planID uint, eventType string, payload map[string]interface{}) {
	message, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}
	if err := s.notifier.PublishPlanChat(context.WithoutCancel(ctx), planID, message); err != nil {
		middleware.L(ctx).Warn("failed to publish plan event",
			zap.String("event", eventType),
			zap.Uint("plan_id", planID),
			zap.Error(err),
		)
	}
}

func userSummary(user models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.Name(),
		"avatar":      user.Avatar,
	}
}
