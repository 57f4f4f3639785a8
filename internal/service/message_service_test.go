package service

import (
	"context"
	"strings"
	"testing"

	"tandem/internal/cache"
	"tandem/internal/models"
	"tandem/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageServiceSendRequiresFriendship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "dm1")
	u2 := f.user(t, "dm2")

	_, err := f.messages.Send(ctx, u1.ID, u2.ID, "hi")
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	// A pending request is not enough.
	_, err = f.friends.SendFriendRequest(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, u1.ID, u2.ID, "hi")
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	reqs, err := f.friends.GetPendingRequests(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	_, err = f.friends.RespondToRequest(ctx, u2.ID, reqs[0].ID, true)
	require.NoError(t, err)

	// Either side may message once accepted.
	msg, err := f.messages.Send(ctx, u1.ID, u2.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)
	assert.Equal(t, models.ConversationIDOf(u2.ID, u1.ID), msg.ConversationID)

	_, err = f.messages.Send(ctx, u2.ID, u1.ID, "hey")
	require.NoError(t, err)

	// Blocking revokes the gate even with history.
	_, err = f.friends.Block(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, u1.ID, u2.ID, "still there?")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestMessageServiceSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "v1")
	u2 := f.user(t, "v2")
	f.makeFriends(t, u1.ID, u2.ID)

	tests := []struct {
		name      string
		sender    uint
		recipient uint
		content   string
		code      string
	}{
		{"Empty", u1.ID, u2.ID, "   ", models.CodeValidation},
		{"Too long", u1.ID, u2.ID, strings.Repeat("a", models.MaxMessageLength+1), models.CodeValidation},
		{"Self", u1.ID, u1.ID, "hi", models.CodeValidation},
		{"Unknown recipient", u1.ID, 9999, "hi", models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Send(ctx, tt.sender, tt.recipient, tt.content)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
		})
	}

	_, err := f.messages.Send(ctx, u1.ID, u2.ID, strings.Repeat("a", models.MaxMessageLength))
	assert.NoError(t, err)

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", u1.ID).Update("is_banned", true).Error)
	_, err = f.messages.Send(ctx, u1.ID, u2.ID, "hi")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestMessageServiceSendRejectsBanWhileUserCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cache.SetClient(nil)

	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "cb1")
	u2 := f.user(t, "cb2")
	f.makeFriends(t, u1.ID, u2.ID)

	_, err := f.messages.Send(ctx, u2.ID, u1.ID, "warm")
	require.NoError(t, err)
	_, err = f.users.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey(u1.ID)))

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", u1.ID).Update("is_banned", true).Error)

	_, err = f.messages.Send(ctx, u1.ID, u2.ID, "still here?")
	assert.True(t, models.IsCode(err, models.CodeForbidden), "got %v", err)
}

func TestMessageServiceListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "c1")
	u2 := f.user(t, "c2")
	u3 := f.user(t, "c3")
	f.makeFriends(t, u1.ID, u2.ID)
	f.makeFriends(t, u3.ID, u1.ID)

	mustSend := func(from, to uint, content string) {
		_, err := f.messages.Send(ctx, from, to, content)
		require.NoError(t, err)
	}
	mustSend(u1.ID, u2.ID, "one")
	mustSend(u2.ID, u1.ID, "two")
	mustSend(u2.ID, u1.ID, "three")
	mustSend(u1.ID, u3.ID, "four")

	convs, err := f.messages.ListConversations(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, models.ConversationIDOf(u1.ID, u3.ID), convs[0].ConversationID)
	assert.Equal(t, u3.ID, convs[0].OtherUser.ID)
	assert.Equal(t, u3.Username, convs[0].OtherUser.Username)
	assert.Equal(t, "four", convs[0].LastMessage.Content)
	assert.Equal(t, 0, convs[0].UnreadCount)

	assert.Equal(t, u2.ID, convs[1].OtherUser.ID)
	assert.Equal(t, "three", convs[1].LastMessage.Content)
	assert.Equal(t, 2, convs[1].UnreadCount)

	// u2 sees only u1's message as unread.
	convs, err = f.messages.ListConversations(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)

	none, err := f.messages.ListConversations(ctx, f.user(t, "lonely").ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMessageServiceListMessagesAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "r1")
	u2 := f.user(t, "r2")
	outsider := f.user(t, "r3")
	f.makeFriends(t, u1.ID, u2.ID)

	for _, c := range []string{"a", "b", "c"} {
		_, err := f.messages.Send(ctx, u2.ID, u1.ID, c)
		require.NoError(t, err)
	}
	convID := models.ConversationIDOf(u1.ID, u2.ID)

	page, err := f.messages.ListMessages(ctx, convID, u1.ID, repository.PageQuery{Limit: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "b", page.Messages[0].Content)
	assert.Equal(t, "c", page.Messages[1].Content)
	assert.Equal(t, u2.Username, page.OtherUser.Username)

	_, err = f.messages.ListMessages(ctx, convID, outsider.ID, repository.PageQuery{})
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	for _, bad := range []string{"abc", "1-2", "2_1", "0_5", "3_3", ""} {
		_, err = f.messages.ListMessages(ctx, bad, u1.ID, repository.PageQuery{})
		assert.True(t, models.IsCode(err, models.CodeValidation), "id %q", bad)
	}

	_, err = f.messages.MarkRead(ctx, convID, outsider.ID)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	// The sender's own messages are not affected.
	n, err := f.messages.MarkRead(ctx, convID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = f.messages.MarkRead(ctx, convID, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = f.messages.MarkRead(ctx, convID, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	convs, err := f.messages.ListConversations(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Zero(t, convs[0].UnreadCount)
	assert.True(t, convs[0].LastMessage.IsRead)
}
