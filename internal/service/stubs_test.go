package service

import (
	"context"
	"sync"

	"tandem/internal/models"
)

type friendRepoStub struct {
	createFn                func(context.Context, *models.Friendship) error
	getByIDFn               func(context.Context, uint) (*models.Friendship, error)
	getBetweenFn            func(context.Context, uint, uint) (*models.Friendship, error)
	getBetweenManyFn        func(context.Context, uint, []uint) ([]models.Friendship, error)
	isAcceptedFn            func(context.Context, uint, uint) (bool, error)
	transitionFromPendingFn func(context.Context, uint, models.FriendshipStatus) (bool, error)
	blockFn                 func(context.Context, uint, uint) (*models.Friendship, error)
	getFriendsFn            func(context.Context, uint) ([]models.User, error)
	getPendingRequestsFn    func(context.Context, uint) ([]models.Friendship, error)
	getSentRequestsFn       func(context.Context, uint) ([]models.Friendship, error)
}

func (s *friendRepoStub) Create(ctx context.Context, friendship *models.Friendship) error {
	return s.createFn(ctx, friendship)
}
func (s *friendRepoStub) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	return s.getByIDFn(ctx, id)
}
func (s *friendRepoStub) GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	return s.getBetweenFn(ctx, userID1, userID2)
}
func (s *friendRepoStub) GetBetweenMany(ctx context.Context, userID uint, others []uint) ([]models.Friendship, error) {
	return s.getBetweenManyFn(ctx, userID, others)
}
func (s *friendRepoStub) IsAccepted(ctx context.Context, userID1, userID2 uint) (bool, error) {
	return s.isAcceptedFn(ctx, userID1, userID2)
}
func (s *friendRepoStub) TransitionFromPending(ctx context.Context, id uint, status models.FriendshipStatus) (bool, error) {
	return s.transitionFromPendingFn(ctx, id, status)
}
func (s *friendRepoStub) Block(ctx context.Context, blockerID, targetID uint) (*models.Friendship, error) {
	return s.blockFn(ctx, blockerID, targetID)
}
func (s *friendRepoStub) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.getFriendsFn(ctx, userID)
}
func (s *friendRepoStub) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getPendingRequestsFn(ctx, userID)
}
func (s *friendRepoStub) GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getSentRequestsFn(ctx, userID)
}

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByIDsFn      func(context.Context, []uint) ([]models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	searchFn        func(context.Context, string, uint, int) ([]models.User, error)
	setBannedFn     func(context.Context, uint, bool) error
	isBannedFn      func(context.Context, uint) (bool, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Search(ctx context.Context, q string, excludeID uint, limit int) ([]models.User, error) {
	return s.searchFn(ctx, q, excludeID, limit)
}
func (s *userRepoStub) SetBanned(ctx context.Context, id uint, banned bool) error {
	return s.setBannedFn(ctx, id, banned)
}
func (s *userRepoStub) IsBanned(ctx context.Context, id uint) (bool, error) {
	return s.isBannedFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByIDsFn:      func(context.Context, []uint) ([]models.User, error) { return nil, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		searchFn:        func(context.Context, string, uint, int) ([]models.User, error) { return nil, nil },
		setBannedFn:     func(context.Context, uint, bool) error { return nil },
		isBannedFn:      func(context.Context, uint) (bool, error) { return false, nil },
	}
}

func noopFriendRepo() *friendRepoStub {
	return &friendRepoStub{
		createFn:                func(context.Context, *models.Friendship) error { return nil },
		getByIDFn:               func(context.Context, uint) (*models.Friendship, error) { return &models.Friendship{}, nil },
		getBetweenFn:            func(context.Context, uint, uint) (*models.Friendship, error) { return nil, nil },
		getBetweenManyFn:        func(context.Context, uint, []uint) ([]models.Friendship, error) { return nil, nil },
		isAcceptedFn:            func(context.Context, uint, uint) (bool, error) { return false, nil },
		transitionFromPendingFn: func(context.Context, uint, models.FriendshipStatus) (bool, error) { return true, nil },
		blockFn:                 func(context.Context, uint, uint) (*models.Friendship, error) { return &models.Friendship{}, nil },
		getFriendsFn:            func(context.Context, uint) ([]models.User, error) { return nil, nil },
		getPendingRequestsFn:    func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
		getSentRequestsFn:       func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
	}
}

// recordingSink keeps notifications in memory, honouring dedup keys.
type recordingSink struct {
	mu      sync.Mutex
	records []models.Notification
	keys    map[string]bool
	err     error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{keys: map[string]bool{}}
}

func (s *recordingSink) Record(_ context.Context, n models.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[n.DedupKey] {
		return false, nil
	}
	s.keys[n.DedupKey] = true
	s.records = append(s.records, n)
	return true, nil
}

func (s *recordingSink) ListForUser(_ context.Context, userID uint, _ int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *recordingSink) MarkAllRead(context.Context, uint) (int64, error) {
	return 0, nil
}

func (s *recordingSink) byType(t models.NotificationType) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.records {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
