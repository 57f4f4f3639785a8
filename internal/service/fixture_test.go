package service

import (
	"testing"

	"tandem/internal/models"
	"tandem/internal/repository"
	"tandem/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixture wires every service over one in-memory database.
type fixture struct {
	db          *gorm.DB
	sink        *recordingSink
	users       *UserService
	friends     *FriendService
	messages    *MessageService
	plans       *PlanService
	invitations *InvitationService
	chat        *PlanChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	sink := newRecordingSink()

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	planRepo := repository.NewPlanRepository(db)

	return &fixture{
		db:          db,
		sink:        sink,
		users:       NewUserService(userRepo, friendRepo),
		friends:     NewFriendService(friendRepo, userRepo, sink),
		messages:    NewMessageService(repository.NewMessageRepository(db), friendRepo, userRepo),
		plans:       NewPlanService(planRepo),
		invitations: NewInvitationService(repository.NewInvitationRepository(db), planRepo, userRepo, sink),
		chat:        NewPlanChatService(planRepo, repository.NewPlanMessageRepository(db), userRepo),
	}
}

func (f *fixture) user(t *testing.T, prefix string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, prefix)
}

func (f *fixture) makeFriends(t *testing.T, a, b uint) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Friendship{
		RequesterID: a,
		RecipientID: b,
		Status:      models.FriendshipStatusAccepted,
	}).Error)
}

func (f *fixture) memberCount(t *testing.T, planID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.PlanMember{}).Where("plan_id = ?", planID).Count(&n).Error)
	return n
}
