package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tandem/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities with fake content and persists them.
// It is a thin helper used by the demo seeder and tests.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	passwordHash string
	seq          int
}

// NewFactory creates a Factory bound to db. Every user it creates shares
// the password DefaultPassword.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, faker: gofakeit.New(seed), passwordHash: string(hash)}, nil
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	first := f.faker.FirstName()
	username := strings.ToLower(fmt.Sprintf("%s_%d", first, f.seq))

	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    f.passwordHash,
		DisplayName: first + " " + f.faker.LastName(),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateFriendship persists the relationship record between requester and
// recipient with the given status.
func (f *Factory) CreateFriendship(ctx context.Context, requester, recipient *models.User, status models.FriendshipStatus) (*models.Friendship, error) {
	friendship := &models.Friendship{
		RequesterID: requester.ID,
		RecipientID: recipient.ID,
		Status:      status,
	}
	if status != models.FriendshipStatusPending {
		now := time.Now().UTC()
		friendship.RespondedAt = &now
	}

	if err := f.db.WithContext(ctx).Create(friendship).Error; err != nil {
		return nil, err
	}
	return friendship, nil
}

// CreateDirectMessage persists a message from sender to recipient sent at
// the given time.
func (f *Factory) CreateDirectMessage(ctx context.Context, sender, recipient *models.User, at time.Time, overrides ...func(*models.DirectMessage)) (*models.DirectMessage, error) {
	msg := &models.DirectMessage{
		ConversationID: models.ConversationIDOf(sender.ID, recipient.ID),
		SenderID:       sender.ID,
		RecipientID:    recipient.ID,
		Content:        f.faker.Sentence(f.faker.Number(3, 14)),
		CreatedAt:      at,
	}
	for _, override := range overrides {
		override(msg)
	}

	if err := f.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// CreatePlan persists a plan owned by owner.
func (f *Factory) CreatePlan(ctx context.Context, owner *models.User, overrides ...func(*models.SharedPlan)) (*models.SharedPlan, error) {
	plan := &models.SharedPlan{
		OwnerID:     owner.ID,
		Name:        fmt.Sprintf("%s trip", f.faker.City()),
		Description: f.faker.Sentence(10),
	}
	for _, override := range overrides {
		override(plan)
	}

	if err := f.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// AddMember persists a non-owner membership.
func (f *Factory) AddMember(ctx context.Context, plan *models.SharedPlan, user *models.User, role models.MemberRole) (*models.PlanMember, error) {
	if user.ID == plan.OwnerID {
		return nil, models.NewConflictError("The owner cannot be added as a member")
	}
	member := &models.PlanMember{
		PlanID:   plan.ID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := f.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// CreateTask persists a task created by creator. assignee may be nil.
func (f *Factory) CreateTask(ctx context.Context, plan *models.SharedPlan, creator, assignee *models.User, status models.TaskStatus) (*models.PlanTask, error) {
	task := &models.PlanTask{
		PlanID:      plan.ID,
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), "."),
		Description: f.faker.Sentence(12),
		Status:      status,
		CreatedBy:   creator.ID,
	}
	if assignee != nil {
		task.AssignedTo = &assignee.ID
	}
	if status == models.TaskStatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	if err := f.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// CreatePlanMessage persists a chat message in plan sent at the given time.
func (f *Factory) CreatePlanMessage(ctx context.Context, plan *models.SharedPlan, sender *models.User, at time.Time) (*models.PlanMessage, error) {
	msg := &models.PlanMessage{
		PlanID:    plan.ID,
		SenderID:  sender.ID,
		Content:   f.faker.Sentence(f.faker.Number(3, 12)),
		CreatedAt: at,
	}
	if err := f.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}
