package service

import (
	"context"
	"sort"

	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/repository"
	"tandem/internal/validation"
)

// MessageService implements friendship-gated direct messaging.
type MessageService struct {
	messageRepo repository.MessageRepository
	friendRepo  repository.FriendRepository
	userRepo    repository.UserRepository
}

// ConversationPage is one page of a conversation plus the other participant.
type ConversationPage struct {
	models.MessagePage[models.DirectMessage]
	OtherUser models.UserSummary `json:"otherUser"`
}

func NewMessageService(messageRepo repository.MessageRepository, friendRepo repository.FriendRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		friendRepo:  friendRepo,
		userRepo:    userRepo,
	}
}

// Send stores a message from senderID to recipientID. The pair must be
// accepted friends at the time of sending.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uint, content string) (*models.DirectMessage, error) {
	content, err := validation.MessageContent(content)
	if err != nil {
		return nil, err
	}
	if senderID == recipientID {
		return nil, models.NewValidationError("Cannot send a message to yourself")
	}

	banned, err := s.userRepo.IsBanned(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, models.NewForbiddenError("Banned users cannot send messages")
	}
	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		return nil, err
	}

	friends, err := s.friendRepo.IsAccepted(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, models.NewForbiddenError("You can only message friends")
	}

	msg := &models.DirectMessage{
		ConversationID: models.ConversationIDOf(senderID, recipientID),
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesSent.WithLabelValues("direct").Inc()
	return msg, nil
}

// ListConversations groups every message of userID by conversation in one
// pass, newest conversation first.
func (s *MessageService) ListConversations(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	messages, err := s.messageRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Messages arrive newest first, so the first one seen per conversation
	// is its last message.
	index := map[string]int{}
	summaries := []models.ConversationSummary{}
	otherIDs := []uint{}
	for _, m := range messages {
		i, seen := index[m.ConversationID]
		if !seen {
			other := m.RecipientID
			if other == userID {
				other = m.SenderID
			}
			i = len(summaries)
			index[m.ConversationID] = i
			summaries = append(summaries, models.ConversationSummary{
				ConversationID: m.ConversationID,
				OtherUser:      models.UserSummary{ID: other},
				LastMessage:    m,
			})
			otherIDs = append(otherIDs, other)
		}
		if m.RecipientID == userID && !m.IsRead {
			summaries[i].UnreadCount++
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range summaries {
		if u, ok := byID[summaries[i].OtherUser.ID]; ok {
			summaries[i].OtherUser = u.Summary()
		}
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].LastMessage.CreatedAt.After(summaries[b].LastMessage.CreatedAt)
	})
	return summaries, nil
}

// ListMessages returns one page of a conversation, oldest first. Only the
// two participants encoded in the conversation ID may read it.
func (s *MessageService) ListMessages(ctx context.Context, conversationID string, callerID uint, q repository.PageQuery) (*ConversationPage, error) {
	otherID, err := s.participantOther(conversationID, callerID)
	if err != nil {
		return nil, err
	}

	messages, hasMore, err := s.messageRepo.ListPage(ctx, conversationID, q)
	if err != nil {
		return nil, err
	}

	page := &ConversationPage{
		MessagePage: models.MessagePage[models.DirectMessage]{Messages: messages, HasMore: hasMore},
		OtherUser:   models.UserSummary{ID: otherID},
	}
	if other, err := s.userRepo.GetByID(ctx, otherID); err == nil {
		page.OtherUser = other.Summary()
	} else if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	return page, nil
}

// MarkRead flags the caller's unread messages in the conversation and
// returns how many changed. Repeating it returns 0.
func (s *MessageService) MarkRead(ctx context.Context, conversationID string, callerID uint) (int64, error) {
	if _, err := s.participantOther(conversationID, callerID); err != nil {
		return 0, err
	}
	return s.messageRepo.MarkRead(ctx, conversationID, callerID)
}

func (s *MessageService) participantOther(conversationID string, callerID uint) (uint, error) {
	a, b, err := models.ParseConversationID(conversationID)
	if err != nil {
		return 0, err
	}
	switch callerID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return 0, models.NewForbiddenError("You are not a participant in this conversation")
}
