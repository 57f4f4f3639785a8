package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"tandem/internal/config"
	"tandem/internal/models"
	"tandem/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// apiHarness runs the full route table against an in-memory database.
type apiHarness struct {
	db  *gorm.DB
	srv *Server
	app *fiber.App
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(&config.Config{JWTSecret: testJWTSecret, Env: "test"}, db, nil, nil)
	require.NoError(t, err)
	return &apiHarness{db: db, srv: srv, app: srv.App()}
}

// login creates a user and returns it with a session token.
func (h *apiHarness) login(t *testing.T, prefix string) (*models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, h.db, prefix)
	token, err := h.srv.tokens.Issue(u.ID, u.Username)
	require.NoError(t, err)
	return u, token
}

// call performs a request and decodes a JSON response into out when non-nil.
func (h *apiHarness) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_RequiresSession(t *testing.T) {
	h := newAPIHarness(t)

	for _, path := range []string{"/api/shared-plans", "/api/messages", "/api/friends", "/api/notifications"} {
		var body map[string]string
		assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, path, "", nil, &body), path)
		assert.Equal(t, models.CodeUnauthorized, body["code"])
	}

	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/health/live", "", nil, nil))
}

func TestAPI_SignupLoginLogout(t *testing.T) {
	h := newAPIHarness(t)

	var signup struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	status := h.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "trailhead",
		"email":    "Trail@Example.com",
		"password": "Password123!",
	}, &signup)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "trail@example.com", signup.User.Email)

	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "trailhead2",
		"email":    "trail@example.com",
		"password": "Password123!",
	}, nil))

	var login struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "trail@example.com",
		"password": "Password123!",
	}, &login))

	var me models.User
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/me", login.Token, nil, &me))
	assert.Equal(t, signup.User.ID, me.ID)

	assert.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/auth/logout", login.Token, nil, nil))
}

func TestAPI_DirectMessagingRequiresFriendship(t *testing.T) {
	h := newAPIHarness(t)
	u1, t1 := h.login(t, "dm1")
	u2, t2 := h.login(t, "dm2")
	_, t3 := h.login(t, "dm3")

	send := func(token string, to uint, content string) int {
		return h.call(t, http.MethodPost, "/api/messages", token, map[string]any{"recipientId": to, "content": content}, nil)
	}

	assert.Equal(t, http.StatusForbidden, send(t1, u2.ID, "hi"))

	var request models.Friendship
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d", u2.ID), t1, nil, &request))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d", u1.ID), t2, nil, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/accept", request.ID), t1, nil, nil))
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/accept", request.ID), t2, nil, nil))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/decline", request.ID), t2, nil, nil))

	var sent struct {
		Message models.DirectMessage `json:"message"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/messages", t1,
		map[string]any{"recipientId": u2.ID, "content": "hi"}, &sent))
	assert.Equal(t, "hi", sent.Message.Content)
	convID := models.ConversationIDOf(u1.ID, u2.ID)
	assert.Equal(t, convID, sent.Message.ConversationID)

	require.Equal(t, http.StatusCreated, send(t2, u1.ID, "hello back"))
	require.Equal(t, http.StatusCreated, send(t2, u1.ID, "are you there?"))

	var list struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/messages", t1, nil, &list))
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, convID, list.Conversations[0].ConversationID)
	assert.Equal(t, u2.ID, list.Conversations[0].OtherUser.ID)
	assert.Equal(t, 2, list.Conversations[0].UnreadCount)

	var page struct {
		Messages  []models.DirectMessage `json:"messages"`
		HasMore   bool                   `json:"hasMore"`
		OtherUser models.UserSummary     `json:"otherUser"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/messages/"+convID, t1, nil, &page))
	assert.Len(t, page.Messages, 3)
	assert.False(t, page.HasMore)
	assert.Equal(t, u2.Username, page.OtherUser.Username)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, "/api/messages/"+convID, t3, nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodGet, "/api/messages/not-an-id", t1, nil, nil))

	var read struct {
		Count int64 `json:"count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/api/messages/"+convID, t1, nil, &read))
	assert.Equal(t, int64(2), read.Count)
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/api/messages/"+convID, t1, nil, &read))
	assert.Equal(t, int64(0), read.Count)

	var notes struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/notifications", t1, nil, &notes))
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, models.NotificationFriendAccepted, notes.Notifications[0].Type)
}

func TestAPI_TripScenario(t *testing.T) {
	h := newAPIHarness(t)
	u1, t1 := h.login(t, "trip1")
	u2, t2 := h.login(t, "trip2")

	var created struct {
		Plan models.PlanDetail `json:"plan"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/shared-plans", t1,
		map[string]string{"name": "Trip", "description": "Lakes"}, &created))
	planID := created.Plan.ID
	base := fmt.Sprintf("/api/shared-plans/%d", planID)

	var invited struct {
		Invitation models.PlanInvitation `json:"invitation"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, base+"/invitations", t1,
		map[string]any{"userId": u2.ID, "role": "editor"}, &invited))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, base+"/invitations", t1,
		map[string]any{"userId": u2.ID, "role": "viewer"}, nil))

	var pending struct {
		Invitations []models.InvitationView `json:"invitations"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/shared-plans/invitations", t2, nil, &pending))
	require.Len(t, pending.Invitations, 1)
	assert.Equal(t, "Trip", pending.Invitations[0].PlanName)

	respond := map[string]any{"invitationId": invited.Invitation.ID, "action": "accept"}
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPatch, "/api/shared-plans/invitations", t1, respond, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPatch, "/api/shared-plans/invitations", t2,
		map[string]any{"invitationId": invited.Invitation.ID, "action": "maybe"}, nil))
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/api/shared-plans/invitations", t2, respond, nil))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPatch, "/api/shared-plans/invitations", t2, respond, nil))

	var got struct {
		Plan models.PlanDetail `json:"plan"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, base, t2, nil, &got))
	require.Len(t, got.Plan.Members, 2)
	assert.Equal(t, models.PlanRoleOwner, got.Plan.Members[0].Role)
	assert.Equal(t, u2.ID, got.Plan.Members[1].UserID)
	assert.Equal(t, models.PlanRoleEditor, got.Plan.Members[1].Role)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPatch, base+"/members", t2,
		map[string]any{"userId": u1.ID, "role": "viewer"}, nil))
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, base+"/members", t1,
		map[string]any{"userId": u2.ID, "role": "viewer"}, nil))

	var plans struct {
		Plans []models.PlanDetail `json:"plans"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/shared-plans", t2, nil, &plans))
	require.Len(t, plans.Plans, 1)
	assert.Equal(t, models.PlanRoleViewer, plans.Plans[0].UserRole)

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodDelete, fmt.Sprintf("%s/members?userId=%d", base, u1.ID), t1, nil, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodDelete, fmt.Sprintf("%s/members?userId=%d", base, u1.ID), t2, nil, nil))

	var left struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, fmt.Sprintf("%s/members?userId=%d", base, u2.ID), t2, nil, &left))
	assert.Equal(t, "Left plan", left.Message)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, base, t1, nil, &got))
	assert.Len(t, got.Plan.Members, 1)
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, base, t2, nil, nil))

	var notes struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/notifications", t1, nil, &notes))
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, models.NotificationInvitationAccepted, notes.Notifications[0].Type)

	var marked struct {
		Count int64 `json:"count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/notifications/read", t1, nil, &marked))
	assert.Equal(t, int64(1), marked.Count)
}

func TestAPI_PlanTasks(t *testing.T) {
	h := newAPIHarness(t)
	_, t1 := h.login(t, "task1")

	var created struct {
		Plan models.PlanDetail `json:"plan"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/shared-plans", t1,
		map[string]string{"name": "Chores"}, &created))
	base := fmt.Sprintf("/api/shared-plans/%d", created.Plan.ID)

	var added struct {
		Task models.PlanTask `json:"task"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, base+"/tasks", t1,
		map[string]string{"title": "Dishes"}, &added))
	assert.Equal(t, models.TaskStatusPending, added.Task.Status)

	taskPath := fmt.Sprintf("%s/tasks/%d", base, added.Task.ID)
	var updated struct {
		Task models.PlanTask `json:"task"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, taskPath, t1, map[string]string{"status": "completed"}, &updated))
	assert.NotNil(t, updated.Task.CompletedAt)
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPatch, taskPath, t1, map[string]string{"status": "later"}, nil))

	newName := "Weekly chores"
	var renamed struct {
		Plan models.PlanDetail `json:"plan"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, base, t1, map[string]*string{"name": &newName}, &renamed))
	assert.Equal(t, newName, renamed.Plan.Name)
	require.Len(t, renamed.Plan.Tasks, 1)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, taskPath, t1, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodDelete, taskPath, t1, nil, nil))
	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, base, t1, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, base, t1, nil, nil))
}

func TestAPI_PlanChatPagination(t *testing.T) {
	h := newAPIHarness(t)
	owner, token := h.login(t, "chat1")
	_, outsider := h.login(t, "chat2")

	var created struct {
		Plan models.PlanDetail `json:"plan"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/shared-plans", token,
		map[string]string{"name": "Busy"}, &created))
	base := fmt.Sprintf("/api/shared-plans/%d/messages", created.Plan.ID)

	const total = 120
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		require.NoError(t, h.db.Create(&models.PlanMessage{
			PlanID:    created.Plan.ID,
			SenderID:  owner.ID,
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: start.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	type page struct {
		Messages []models.PlanMessageView `json:"messages"`
		HasMore  bool                     `json:"hasMore"`
	}

	seen := map[uint]bool{}
	var sizes []int
	path := base + "?limit=50"
	for {
		var p page
		require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, path, token, nil, &p))
		sizes = append(sizes, len(p.Messages))
		for i, m := range p.Messages {
			assert.False(t, seen[m.ID], "duplicate message %d", m.ID)
			seen[m.ID] = true
			assert.Equal(t, owner.Username, m.Sender.Username)
			if i > 0 {
				assert.True(t, p.Messages[i-1].CreatedAt.Before(m.CreatedAt))
			}
		}
		if !p.HasMore {
			break
		}
		cursor := p.Messages[0].CreatedAt.UTC().Format(time.RFC3339Nano)
		path = base + "?limit=50&before=" + url.QueryEscape(cursor)
	}

	assert.Equal(t, []int{50, 50, 20}, sizes)
	assert.Len(t, seen, total)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, base, outsider, nil, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, base, outsider, map[string]string{"content": "hi"}, nil))

	var sent struct {
		Message models.PlanMessageView `json:"message"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, base, token, map[string]string{"content": "latest"}, &sent))
	assert.Equal(t, "latest", sent.Message.Content)
}

func TestAPI_FriendResponsesExposeOnlyPublicProfiles(t *testing.T) {
	h := newAPIHarness(t)
	u1, t1 := h.login(t, "fp1")
	u2, t2 := h.login(t, "fp2")
	u3, t3 := h.login(t, "fp3")

	assertPublic := func(t *testing.T, label string, body map[string]any) {
		t.Helper()
		for _, side := range []string{"requester", "recipient"} {
			profile, ok := body[side].(map[string]any)
			require.True(t, ok, "%s: %s missing", label, side)
			assert.Contains(t, profile, "username", "%s: %s", label, side)
			for _, private := range []string{"email", "isBanned", "warnings", "password"} {
				assert.NotContains(t, profile, private, "%s: %s", label, side)
			}
		}
	}

	var sent map[string]any
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%d", u2.ID), t1, nil, &sent))
	assertPublic(t, "send", sent)
	assert.Equal(t, u1.Username, sent["requester"].(map[string]any)["username"])

	var pending []map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/friends/requests", t2, nil, &pending))
	require.Len(t, pending, 1)
	assertPublic(t, "pending", pending[0])

	var outgoing []map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/friends/requests/sent", t1, nil, &outgoing))
	require.Len(t, outgoing, 1)
	assertPublic(t, "sent", outgoing[0])

	var accepted map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/requests/%v/accept", sent["id"]), t2, nil, &accepted))
	assertPublic(t, "accept", accepted)
	assert.Equal(t, string(models.FriendshipStatusAccepted), accepted["status"])

	var blocked map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, fmt.Sprintf("/api/friends/%d/block", u1.ID), t3, nil, &blocked))
	assertPublic(t, "block", blocked)
	assert.Equal(t, u3.Username, blocked["requester"].(map[string]any)["username"])
	assert.Equal(t, string(models.FriendshipStatusBlocked), blocked["status"])
}

func TestAPI_LoginFailsClosedWithoutLimiter(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	h := newAPIHarness(t)
	_, token := h.login(t, "fc")

	creds := map[string]string{"email": "nobody@example.com", "password": "Password123!"}
	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, h.call(t, http.MethodPost, "/api/auth/login", "", creds, &body))
	assert.Equal(t, "rate limit unavailable", body["error"])
	assert.Equal(t, http.StatusServiceUnavailable, h.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "closed", "email": "closed@example.com", "password": "Password123!",
	}, nil))

	// Other limited routes keep serving.
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/friends/search?q=fc", token, nil, nil))
}

func TestAPI_LoginLimitedPerClient(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(&config.Config{JWTSecret: testJWTSecret, Env: "production"}, db,
		redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	require.NoError(t, err)
	h := &apiHarness{db: db, srv: srv, app: srv.App()}

	creds := map[string]string{"email": "nobody@example.com", "password": "Password123!"}
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodPost, "/api/auth/login", "", creds, nil), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, h.call(t, http.MethodPost, "/api/auth/login", "", creds, nil))
}
