package service

import (
	"context"
	"sync"
	"testing"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/cache"
	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
	"github.com/taskflow/taskflow/internal/testutil"
)

func newTestRepository(t *testing.T) *repository.Repository {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.New(ctx, testutil.MemoryDatabaseURL(t))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

type testEnv struct {
	repo    *repository.Repository
	cache   *memoryCache
	metrics *metrics.InMemoryRecorder
	users   *UserService
	tasks   *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newTestRepository(t)
	mc := newMemoryCache()
	rec := metrics.NewInMemory()

	return &testEnv{
		repo:    repo,
		cache:   mc,
		metrics: rec,
		users:   NewUserService(repo, mc, auth.NewPasswordHasher(auth.FastParams), rec),
		tasks:   NewTaskService(repo, rec),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *model.User {
	t.Helper()

	res := e.users.CreateUser(context.Background(), CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	if !res.Success {
		t.Fatalf("create user %s: %s (%v)", username, res.Error, res.Err)
	}
	return res.Data
}

// memoryCache is an in-process UserCache.
type memoryCache struct {
	mu       sync.Mutex
	users    map[int64]model.User
	negative map[int64]bool
	auth     map[string]model.AuthContext
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		users:    map[int64]model.User{},
		negative: map[int64]bool{},
		auth:     map[string]model.AuthContext{},
	}
}

func (c *memoryCache) GetUser(_ context.Context, id int64) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &u, nil
}

func (c *memoryCache) SetUser(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := *user
	u.PasswordHash, u.APIKeyHash = "", ""
	c.users[user.ID] = u
	delete(c.negative, user.ID)
	return nil
}

func (c *memoryCache) DeleteUser(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, id)
	delete(c.negative, id)
	return nil
}

func (c *memoryCache) IsUserNegativelyCached(_ context.Context, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negative[id], nil
}

func (c *memoryCache) SetUserNegativeCache(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negative[id] = true
	return nil
}

func (c *memoryCache) GetAuthContext(_ context.Context, keyHash string) (*model.AuthContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.auth[keyHash]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &a, nil
}

func (c *memoryCache) SetAuthContext(_ context.Context, keyHash string, a *model.AuthContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth[keyHash] = *a
	return nil
}

func (c *memoryCache) DeleteAuthContext(_ context.Context, keyHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.auth, keyHash)
	return nil
}

func (c *memoryCache) hasUser(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.users[id]
	return ok
}
