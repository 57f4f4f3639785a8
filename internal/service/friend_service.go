package service

import (
	"context"
	"fmt"

	"tandem/internal/models"
	"tandem/internal/notifications"
	"tandem/internal/observability"
	"tandem/internal/repository"
)

// FriendService provides friend-request and friendship business logic.
type FriendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
	sink       notifications.Sink
}

// NewFriendService returns a new FriendService. sink may be nil.
func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository, sink notifications.Sink) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		sink:       sink,
	}
}

// SendFriendRequest creates a pending request from userID to targetUserID.
// Any existing record for the pair, in either direction and any status,
// makes the request a duplicate.
func (s *FriendService) SendFriendRequest(ctx context.Context, userID, targetUserID uint) (*models.Friendship, error) {
	if userID == targetUserID {
		return nil, models.NewValidationError("Cannot send friend request to yourself")
	}

	requester, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	existing, err := s.friendRepo.GetBetween(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status == models.FriendshipStatusAccepted:
			return nil, models.NewConflictError("You are already friends")
		case existing.Status == models.FriendshipStatusPending && existing.RequesterID == userID:
			return nil, models.NewConflictError("Friend request already sent")
		case existing.Status == models.FriendshipStatusPending:
			return nil, models.NewConflictError("You already have a pending friend request from this user")
		default:
			return nil, models.NewConflictError("A friend request between these users already exists")
		}
	}

	friendship := &models.Friendship{
		RequesterID: userID,
		RecipientID: targetUserID,
		Status:      models.FriendshipStatusPending,
	}
	if err := s.friendRepo.Create(ctx, friendship); err != nil {
		return nil, err
	}
	observability.FriendshipTransitions.WithLabelValues(string(models.FriendshipStatusPending)).Inc()

	recordNotification(ctx, s.sink, models.Notification{
		UserID:   targetUserID,
		Type:     models.NotificationFriendRequest,
		Title:    "New friend request",
		Body:     fmt.Sprintf("%s sent you a friend request", requester.Name()),
		DedupKey: fmt.Sprintf("friend-request:%d", friendship.ID),
	})

	return s.friendRepo.GetByID(ctx, friendship.ID)
}

// RespondToRequest accepts or declines a pending request addressed to userID.
func (s *FriendService) RespondToRequest(ctx context.Context, userID, requestID uint, accept bool) (*models.Friendship, error) {
	friendship, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if friendship.RecipientID != userID {
		return nil, models.NewForbiddenError("You can only respond to friend requests sent to you")
	}
	if friendship.Status != models.FriendshipStatusPending {
		return nil, models.NewConflictError("Friend request is not pending")
	}

	status := models.FriendshipStatusDeclined
	if accept {
		status = models.FriendshipStatusAccepted
	}
	ok, err := s.friendRepo.TransitionFromPending(ctx, requestID, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Friend request is not pending")
	}
	observability.FriendshipTransitions.WithLabelValues(string(status)).Inc()

	if accept {
		recordNotification(ctx, s.sink, models.Notification{
			UserID:   friendship.RequesterID,
			Type:     models.NotificationFriendAccepted,
			Title:    "Friend request accepted",
			Body:     fmt.Sprintf("%s accepted your friend request", friendship.Recipient.Name()),
			DedupKey: fmt.Sprintf("friend-accepted:%d", friendship.ID),
		})
	}

	return s.friendRepo.GetByID(ctx, requestID)
}

// Block marks the pair blocked by userID from whatever state it is in and
// returns the record with both participants loaded.
func (s *FriendService) Block(ctx context.Context, userID, targetUserID uint) (*models.Friendship, error) {
	if userID == targetUserID {
		return nil, models.NewValidationError("Cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	friendship, err := s.friendRepo.Block(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}
	observability.FriendshipTransitions.WithLabelValues(string(models.FriendshipStatusBlocked)).Inc()
	return s.friendRepo.GetByID(ctx, friendship.ID)
}

// AreFriends reports whether the pair has an accepted friendship, in either
// direction. It gates direct messaging.
func (s *FriendService) AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	return s.friendRepo.IsAccepted(ctx, userID1, userID2)
}

// GetFriends returns the list of friends for the user.
func (s *FriendService) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friendRepo.GetFriends(ctx, userID)
}

// GetPendingRequests returns pending friend requests for the user.
func (s *FriendService) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.friendRepo.GetPendingRequests(ctx, userID)
}

// GetSentRequests returns friend requests sent by the user.
func (s *FriendService) GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.friendRepo.GetSentRequests(ctx, userID)
}
