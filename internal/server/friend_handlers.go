package server

import (
	"time"

	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SearchFriends handles GET /api/friends/search?q=
func (s *Server) SearchFriends(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), callerID(c), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.friendService.GetFriends(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}

	summaries := make([]models.UserSummary, 0, len(friends))
	for _, f := range friends {
		summaries = append(summaries, f.Summary())
	}
	return c.JSON(fiber.Map{"friends": summaries})
}

// SendFriendRequest handles POST /api/friends/requests/:userId
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	userID := callerID(c)
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.SendFriendRequest(c.UserContext(), userID, targetUserID)
	if err != nil {
		return respondError(c, err)
	}

	s.publishUserEvent(c.UserContext(), friendship.RecipientID, EventFriendRequestReceived, map[string]interface{}{
		"request_id": friendship.ID,
		"from_user":  userSummary(friendship.Requester),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.Status(fiber.StatusCreated).JSON(friendship.View())
}

// GetPendingRequests handles GET /api/friends/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	requests, err := s.friendService.GetPendingRequests(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.FriendshipViews(requests))
}

// GetSentRequests handles GET /api/friends/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	requests, err := s.friendService.GetSentRequests(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.FriendshipViews(requests))
}

// AcceptFriendRequest handles POST /api/friends/requests/:requestId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	return s.respondToFriendRequest(c, true)
}

// DeclineFriendRequest handles POST /api/friends/requests/:requestId/decline
func (s *Server) DeclineFriendRequest(c *fiber.Ctx) error {
	return s.respondToFriendRequest(c, false)
}

func (s *Server) respondToFriendRequest(c *fiber.Ctx, accept bool) error {
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.RespondToRequest(c.UserContext(), callerID(c), requestID, accept)
	if err != nil {
		return respondError(c, err)
	}

	if accept {
		s.publishUserEvent(c.UserContext(), friendship.RequesterID, EventFriendRequestAccepted, map[string]interface{}{
			"request_id":  friendship.ID,
			"friend":      userSummary(friendship.Recipient),
			"accepted_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	return c.JSON(friendship.View())
}

// BlockUser handles POST /api/friends/:userId/block
func (s *Server) BlockUser(c *fiber.Ctx) error {
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.Block(c.UserContext(), callerID(c), targetUserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(friendship.View())
}
