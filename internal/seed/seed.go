// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tandem/internal/database"
	"tandem/internal/middleware"
	"tandem/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPassword is the login password of every seeded user.
const DefaultPassword = "Password123!"

// friendsPerUser is how many ring neighbours each user is paired with.
const friendsPerUser = 3

// Options configures the demo seeder.
type Options struct {
	Users           int
	Plans           int
	MessagesPerPair int
	ChatPerPlan     int
	// SkipBcrypt hashes the shared password at minimum cost.
	SkipBcrypt bool
	// RandSeed fixes the fake content generator; zero means time-based.
	RandSeed int64
}

// Result counts what a demo run created.
type Result struct {
	Users          int
	Friendships    int
	DirectMessages int
	Plans          int
	Members        int
	Tasks          int
	PlanMessages   int
}

// Seeder populates a database with a connected demo data set.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	if opts.MessagesPerPair <= 0 {
		opts.MessagesPerPair = 6
	}
	if opts.ChatPerPlan <= 0 {
		opts.ChatPerPlan = 10
	}
	factory, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory, opts: opts}, nil
}

// Demo creates users, a friendship mesh, direct conversations between
// friends and plans shared among friends with tasks and chat history.
func (s *Seeder) Demo(ctx context.Context) (*Result, error) {
	if s.opts.Users < 2 {
		return nil, errors.New("demo seeding needs at least 2 users")
	}
	log := middleware.L(ctx)
	log.Info("seeding demo data", zap.Int("users", s.opts.Users), zap.Int("plans", s.opts.Plans))

	res := &Result{}
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		u, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	friends, err := s.seedFriendships(ctx, users, res)
	if err != nil {
		return nil, err
	}
	if err := s.seedConversations(ctx, users, friends, res); err != nil {
		return nil, err
	}
	if err := s.seedPlans(ctx, users, friends, res); err != nil {
		return nil, err
	}

	log.Info("demo data seeded",
		zap.Int("friendships", res.Friendships),
		zap.Int("direct_messages", res.DirectMessages),
		zap.Int("plans", res.Plans),
		zap.Int("plan_messages", res.PlanMessages),
	)
	return res, nil
}

// seedFriendships pairs each user with its next ring neighbours. Every
// fifth pair stays pending. The returned map lists accepted friends.
func (s *Seeder) seedFriendships(ctx context.Context, users []*models.User, res *Result) (map[uint][]*models.User, error) {
	friends := make(map[uint][]*models.User, len(users))
	seen := make(map[string]bool)
	n := len(users)

	for i, u := range users {
		for d := 1; d <= friendsPerUser; d++ {
			other := users[(i+d)%n]
			key := models.FriendshipPairKey(u.ID, other.ID)
			if other.ID == u.ID || seen[key] {
				continue
			}
			seen[key] = true

			status := models.FriendshipStatusAccepted
			if (i+d)%5 == 0 {
				status = models.FriendshipStatusPending
			}
			if _, err := s.factory.CreateFriendship(ctx, u, other, status); err != nil {
				return nil, fmt.Errorf("create friendship: %w", err)
			}
			res.Friendships++

			if status == models.FriendshipStatusAccepted {
				friends[u.ID] = append(friends[u.ID], other)
				friends[other.ID] = append(friends[other.ID], u)
			}
		}
	}
	return friends, nil
}

// seedConversations writes MessagesPerPair alternating messages for each
// accepted pair. All but the last message are marked read.
func (s *Seeder) seedConversations(ctx context.Context, users []*models.User, friends map[uint][]*models.User, res *Result) error {
	start := time.Now().UTC().Add(-48 * time.Hour)

	for _, u := range users {
		for _, other := range friends[u.ID] {
			if other.ID < u.ID {
				continue
			}
			for k := 0; k < s.opts.MessagesPerPair; k++ {
				sender, recipient := u, other
				if k%2 == 1 {
					sender, recipient = other, u
				}
				at := start.Add(time.Duration(res.DirectMessages) * time.Minute)
				read := k < s.opts.MessagesPerPair-1
				_, err := s.factory.CreateDirectMessage(ctx, sender, recipient, at, func(m *models.DirectMessage) {
					if read {
						readAt := at.Add(time.Minute)
						m.IsRead = true
						m.ReadAt = &readAt
					}
				})
				if err != nil {
					return fmt.Errorf("create direct message: %w", err)
				}
				res.DirectMessages++
			}
		}
	}
	return nil
}

// seedPlans creates plans owned round-robin by users. The owner's first
// two friends join as editor and viewer.
func (s *Seeder) seedPlans(ctx context.Context, users []*models.User, friends map[uint][]*models.User, res *Result) error {
	start := time.Now().UTC().Add(-24 * time.Hour)
	statuses := []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted}

	for p := 0; p < s.opts.Plans; p++ {
		owner := users[p%len(users)]
		plan, err := s.factory.CreatePlan(ctx, owner)
		if err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		res.Plans++

		participants := []*models.User{owner}
		for i, friend := range friends[owner.ID] {
			if i == 2 {
				break
			}
			role := models.MemberRoleEditor
			if i == 1 {
				role = models.MemberRoleViewer
			}
			if _, err := s.factory.AddMember(ctx, plan, friend, role); err != nil {
				return fmt.Errorf("add plan member: %w", err)
			}
			participants = append(participants, friend)
			res.Members++
		}

		for i, status := range statuses {
			assignee := participants[i%len(participants)]
			if _, err := s.factory.CreateTask(ctx, plan, owner, assignee, status); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			res.Tasks++
		}

		for k := 0; k < s.opts.ChatPerPlan; k++ {
			sender := participants[k%len(participants)]
			at := start.Add(time.Duration(k) * 3 * time.Minute)
			if _, err := s.factory.CreatePlanMessage(ctx, plan, sender, at); err != nil {
				return fmt.Errorf("create plan message: %w", err)
			}
			res.PlanMessages++
		}
	}
	return nil
}

// Clean removes every row of the schema-managed tables.
func Clean(ctx context.Context, db *gorm.DB) error {
	modelsInOrder := database.PersistentModels()
	tables := make([]string, 0, len(modelsInOrder))
	for i := len(modelsInOrder) - 1; i >= 0; i-- {
		named, ok := modelsInOrder[i].(interface{ TableName() string })
		if !ok {
			return fmt.Errorf("model %T has no table name", modelsInOrder[i])
		}
		tables = append(tables, named.TableName())
	}

	db = db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		sql := "TRUNCATE TABLE "
		for i, table := range tables {
			if i > 0 {
				sql += ", "
			}
			sql += table
		}
		return db.Exec(sql + " RESTART IDENTITY CASCADE").Error
	}

	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
