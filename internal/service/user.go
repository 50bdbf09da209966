package service

import (
	"context"
	"errors"
	"time"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/cache"
	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
)

// User-facing messages.
const (
	MsgUserNotFound       = "User not found"
	MsgUsernameExists     = "Username already exists"
	MsgEmailExists        = "Email already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgInvalidAPIKey      = "Invalid or missing API key"
)

// UserStore is the persistence the user service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByAPIKeyHash(ctx context.Context, keyHash string) (*model.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetUserAPIKey(ctx context.Context, id int64, keyHash, keyPrefix string) error
	DeleteUser(ctx context.Context, id int64) error
	GetUserStats(ctx context.Context, since time.Time) (*model.UserStats, error)
}

// UserCache is the read-through cache in front of UserStore.
type UserCache interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	IsUserNegativelyCached(ctx context.Context, id int64) (bool, error)
	SetUserNegativeCache(ctx context.Context, id int64) error
	GetAuthContext(ctx context.Context, keyHash string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, keyHash string, auth *model.AuthContext) error
	DeleteAuthContext(ctx context.Context, keyHash string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// UserService handles user business logic.
type UserService struct {
	repo    UserStore
	cache   UserCache
	hasher  PasswordHasher
	metrics metrics.Recorder
	now     func() time.Time
}

// NewUserService creates a new UserService.
// A nil cache disables caching; a nil recorder discards metrics.
func NewUserService(repo UserStore, userCache UserCache, hasher PasswordHasher, recorder metrics.Recorder) *UserService {
	if userCache == nil {
		userCache = cache.Noop{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		repo:    repo,
		cache:   userCache,
		hasher:  hasher,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListUsersInput defines filters for listing users.
type ListUsersInput struct {
	IsActive  *bool
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsActive  *bool // defaults to true
}

// UpdateUserInput defines a partial user update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}

// LoginInput defines credentials for password login.
type LoginInput struct {
	Username string
	Password string
}

// IssuedAPIKey is returned once when a key is created.
type IssuedAPIKey struct {
	User   *model.User
	APIKey string
}

// ListUsers returns users matching the filters.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) Result[[]*model.User] {
	limit, offset := pageWindow(input.Page, input.Limit)

	users, err := s.repo.ListUsers(ctx, repository.UserFilter{
		IsActive: input.IsActive,
		Search:   input.Search,
		SortBy:   input.SortBy,
		SortDesc: input.SortOrder == "desc",
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return Internal[[]*model.User](err)
	}

	return OK(users, "")
}

// GetUser returns a user by ID, reading through the cache.
func (s *UserService) GetUser(ctx context.Context, id int64) Result[*model.User] {
	if cached, err := s.cache.GetUser(ctx, id); err == nil {
		s.metrics.IncUserCacheHit()
		return OK(cached, "")
	}
	s.metrics.IncUserCacheMiss()

	if negative, _ := s.cache.IsUserNegativelyCached(ctx, id); negative {
		return Fail[*model.User](KindNotFound, MsgUserNotFound, nil)
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.cache.SetUserNegativeCache(ctx, id)
		}
		return s.userFailure(err)
	}

	_ = s.cache.SetUser(ctx, user)
	return OK(user, "")
}

// GetUserByUsername returns a user by exact username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) Result[*model.User] {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return s.userFailure(err)
	}
	return OK(user, "")
}

// GetUserByEmail returns a user by exact email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) Result[*model.User] {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return s.userFailure(err)
	}
	return OK(user, "")
}

// CreateUser registers a new user.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) Result[*model.User] {
	if res, taken := s.checkUnique(ctx, 0, input.Username, input.Email); taken {
		return res
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return Internal[*model.User](err)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	now := s.now()
	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return s.userFailure(err)
	}

	_ = s.cache.DeleteUser(ctx, user.ID)
	s.metrics.IncUserCreated()
	return OK(user, "User created successfully")
}

// UpdateUser applies a partial update.
func (s *UserService) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) Result[*model.User] {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return s.userFailure(err)
	}

	var username, email string
	if input.Username != nil && *input.Username != user.Username {
		username = *input.Username
	}
	if input.Email != nil && *input.Email != user.Email {
		email = *input.Email
	}
	if res, taken := s.checkUnique(ctx, id, username, email); taken {
		return res
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return s.userFailure(err)
	}

	s.invalidate(ctx, user)
	s.metrics.IncUserUpdated()
	return OK(user, "User updated successfully")
}

// DeleteUser removes a user and unassigns its tasks.
func (s *UserService) DeleteUser(ctx context.Context, id int64) Result[*model.User] {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return s.userFailure(err)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return s.userFailure(err)
	}

	s.invalidate(ctx, user)
	s.metrics.IncUserDeleted()
	return OK(user, "User deleted successfully")
}

// ActivateUser sets the active flag.
func (s *UserService) ActivateUser(ctx context.Context, id int64) Result[*model.User] {
	return s.setActive(ctx, id, true, "User activated successfully")
}

// DeactivateUser clears the active flag. API key authentication stops working immediately.
func (s *UserService) DeactivateUser(ctx context.Context, id int64) Result[*model.User] {
	return s.setActive(ctx, id, false, "User deactivated successfully")
}

func (s *UserService) setActive(ctx context.Context, id int64, active bool, message string) Result[*model.User] {
	if err := s.repo.SetUserActive(ctx, id, active); err != nil {
		return s.userFailure(err)
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return s.userFailure(err)
	}

	s.invalidate(ctx, user)
	s.metrics.IncUserUpdated()
	return OK(user, message)
}

// GetStats aggregates user counts.
func (s *UserService) GetStats(ctx context.Context) Result[*model.UserStats] {
	stats, err := s.repo.GetUserStats(ctx, s.now().AddDate(0, 0, -30))
	if err != nil {
		return Internal[*model.UserStats](err)
	}
	return OK(stats, "")
}

// Login verifies a username and password and records the login time.
// Unknown users, wrong passwords and inactive accounts are indistinguishable.
func (s *UserService) Login(ctx context.Context, input LoginInput) Result[*model.User] {
	user, err := s.repo.GetUserByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin("failed")
			return Fail[*model.User](KindUnauthorized, MsgInvalidCredentials, nil)
		}
		return Internal[*model.User](err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil && !errors.Is(err, auth.ErrInvalidHash) {
		return Internal[*model.User](err)
	}
	if !ok || !user.IsActive {
		s.metrics.IncLogin("failed")
		return Fail[*model.User](KindUnauthorized, MsgInvalidCredentials, nil)
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return s.userFailure(err)
	}
	user.LastLogin = &now

	_ = s.cache.DeleteUser(ctx, user.ID)
	s.metrics.IncLogin("success")
	return OK(user, "Login successful")
}

// IssueAPIKey creates a new API key for a user, replacing any previous one.
// The plaintext key is only available in this result.
func (s *UserService) IssueAPIKey(ctx context.Context, id int64) Result[*IssuedAPIKey] {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return userFailureAs[*IssuedAPIKey](err)
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return Internal[*IssuedAPIKey](err)
	}

	if err := s.repo.SetUserAPIKey(ctx, id, key.Hash, key.Prefix); err != nil {
		return userFailureAs[*IssuedAPIKey](err)
	}

	// Revoke the previous key before exposing the new one.
	s.invalidate(ctx, user)

	user.APIKeyHash = key.Hash
	user.APIKeyPrefix = key.Prefix
	user.UpdatedAt = s.now()

	return OK(&IssuedAPIKey{User: user, APIKey: key.Plaintext}, "API key issued successfully")
}

// AuthenticateAPIKey resolves a plaintext API key to the identity of its active owner.
func (s *UserService) AuthenticateAPIKey(ctx context.Context, apiKey string) Result[*model.AuthContext] {
	if !auth.ValidateKeyFormat(apiKey) {
		return Fail[*model.AuthContext](KindUnauthorized, MsgInvalidAPIKey, nil)
	}

	keyHash := auth.HashAPIKey(apiKey)
	if cached, err := s.cache.GetAuthContext(ctx, keyHash); err == nil {
		return OK(cached, "")
	}

	user, err := s.repo.GetUserByAPIKeyHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Fail[*model.AuthContext](KindUnauthorized, MsgInvalidAPIKey, nil)
		}
		return Internal[*model.AuthContext](err)
	}
	if !user.IsActive {
		return Fail[*model.AuthContext](KindUnauthorized, MsgInvalidAPIKey, nil)
	}

	authCtx := &model.AuthContext{
		UserID:    user.ID,
		Username:  user.Username,
		KeyPrefix: user.APIKeyPrefix,
	}
	_ = s.cache.SetAuthContext(ctx, keyHash, authCtx)

	return OK(authCtx, "")
}

// checkUnique looks up username and email before a write. Empty values are skipped.
// The repository still maps constraint violations for concurrent writers.
func (s *UserService) checkUnique(ctx context.Context, selfID int64, username, email string) (Result[*model.User], bool) {
	if username != "" {
		existing, err := s.repo.GetUserByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			return Fail[*model.User](KindConflict, MsgUsernameExists, repository.ErrUsernameExists), true
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return Internal[*model.User](err), true
		}
	}

	if email != "" {
		existing, err := s.repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return Fail[*model.User](KindConflict, MsgEmailExists, repository.ErrEmailExists), true
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return Internal[*model.User](err), true
		}
	}

	return Result[*model.User]{}, false
}

// invalidate drops the cached user and the cached identity of its API key.
func (s *UserService) invalidate(ctx context.Context, user *model.User) {
	_ = s.cache.DeleteUser(ctx, user.ID)
	if user.APIKeyHash != "" {
		_ = s.cache.DeleteAuthContext(ctx, user.APIKeyHash)
	}
}

func (s *UserService) userFailure(err error) Result[*model.User] {
	return userFailureAs[*model.User](err)
}

// userFailureAs classifies repository errors from user operations.
func userFailureAs[T any](err error) Result[T] {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return Fail[T](KindNotFound, MsgUserNotFound, err)
	case errors.Is(err, repository.ErrUsernameExists):
		return Fail[T](KindConflict, MsgUsernameExists, err)
	case errors.Is(err, repository.ErrEmailExists):
		return Fail[T](KindConflict, MsgEmailExists, err)
	default:
		return Internal[T](err)
	}
}
