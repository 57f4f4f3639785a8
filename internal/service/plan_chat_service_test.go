package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"tandem/internal/cache"
	"tandem/internal/models"
	"tandem/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChatServiceMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "pc1")
	member := f.user(t, "pc2")
	outsider := f.user(t, "pc3")

	plan, err := f.plans.CreatePlan(ctx, owner.ID, "Chat", "")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.PlanMember{PlanID: plan.ID, UserID: member.ID, Role: models.MemberRoleViewer, JoinedAt: plan.CreatedAt}).Error)

	sent, err := f.chat.Send(ctx, member.ID, plan.ID, "  hello all  ")
	require.NoError(t, err)
	assert.Equal(t, "hello all", sent.Content)
	assert.Equal(t, member.Username, sent.Sender.Username)

	_, err = f.chat.Send(ctx, outsider.ID, plan.ID, "let me in")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	_, err = f.chat.List(ctx, plan.ID, outsider.ID, repository.PageQuery{})
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	_, err = f.chat.Send(ctx, owner.ID, 9999, "hello")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = f.chat.Send(ctx, owner.ID, plan.ID, "   ")
	assert.True(t, models.IsCode(err, models.CodeValidation))
	_, err = f.chat.Send(ctx, owner.ID, plan.ID, strings.Repeat("x", models.MaxMessageLength+1))
	assert.True(t, models.IsCode(err, models.CodeValidation))

	require.NoError(t, f.plans.RemoveMember(ctx, owner.ID, plan.ID, member.ID))
	_, err = f.chat.Send(ctx, member.ID, plan.ID, "still here?")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	_, err = f.chat.List(ctx, plan.ID, member.ID, repository.PageQuery{})
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	page, err := f.chat.List(ctx, plan.ID, owner.ID, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, member.ID, page.Messages[0].Sender.ID)
}

func TestPlanChatServiceBannedSender(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cache.SetClient(nil)

	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "pb1")

	plan, err := f.plans.CreatePlan(ctx, owner.ID, "Banned", "")
	require.NoError(t, err)
	_, err = f.chat.Send(ctx, owner.ID, plan.ID, "before")
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey(owner.ID)))
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", owner.ID).Update("is_banned", true).Error)

	_, err = f.chat.Send(ctx, owner.ID, plan.ID, "hello")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestPlanChatServicePagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "pp1")

	plan, err := f.plans.CreatePlan(ctx, owner.ID, "Busy", "")
	require.NoError(t, err)

	const total = 120
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		require.NoError(t, f.db.Create(&models.PlanMessage{
			PlanID:    plan.ID,
			SenderID:  owner.ID,
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	seen := map[uint]bool{}
	var before *time.Time
	var sizes []int
	for {
		page, err := f.chat.List(ctx, plan.ID, owner.ID, repository.PageQuery{Limit: 50, Before: before})
		require.NoError(t, err)
		sizes = append(sizes, len(page.Messages))
		for _, m := range page.Messages {
			assert.False(t, seen[m.ID])
			seen[m.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor := page.Messages[0].CreatedAt
		before = &cursor
	}

	assert.Equal(t, []int{50, 50, 20}, sizes)
	assert.Len(t, seen, total)
}
