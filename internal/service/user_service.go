package service

import (
	"context"
	"errors"
	"strings"

	"tandem/internal/models"
	"tandem/internal/repository"
	"tandem/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxSearchResults = 20

// UserService handles identity lookups, registration and friend search.
type UserService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
}

// UserSearchResult is one row of a friend search.
type UserSearchResult struct {
	ID               uint   `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"displayName"`
	Avatar           string `json:"avatar"`
	FriendshipStatus string `json:"friendshipStatus"`
	IsRequester      bool   `json:"isRequester"`
}

// RegisterInput carries signup fields.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

func NewUserService(userRepo repository.UserRepository, friendRepo repository.FriendRepository) *UserService {
	return &UserService{userRepo: userRepo, friendRepo: friendRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Register validates the input and stores a new user with a bcrypt hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	displayName, err := validation.OptionalText("Display name", in.DisplayName, 100)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    string(hash),
		DisplayName: displayName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("Invalid credentials")

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalid
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		if errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalid
		}
		return nil, models.NewInternalError(cmpErr)
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Account is banned")
	}
	return user, nil
}

// Search finds users to befriend, annotated with the caller's relationship
// to each of them.
func (s *UserService) Search(ctx context.Context, callerID uint, query string) ([]UserSearchResult, error) {
	query, err := validation.RequiredText("Search query", query, validation.MaxSearchQueryLength)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.Search(ctx, query, callerID, maxSearchResults)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	friendships, err := s.friendRepo.GetBetweenMany(ctx, callerID, ids)
	if err != nil {
		return nil, err
	}
	byOther := make(map[uint]models.Friendship, len(friendships))
	for _, f := range friendships {
		byOther[f.OtherUserID(callerID)] = f
	}

	results := make([]UserSearchResult, 0, len(users))
	for _, u := range users {
		row := UserSearchResult{
			ID:               u.ID,
			Username:         u.Username,
			DisplayName:      u.Name(),
			Avatar:           u.Avatar,
			FriendshipStatus: "none",
		}
		if f, ok := byOther[u.ID]; ok {
			row.FriendshipStatus = string(f.Status)
			row.IsRequester = f.RequesterID == callerID
		}
		results = append(results, row)
	}
	return results, nil
}
