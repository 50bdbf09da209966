package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskflow/taskflow/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

var memoryDBSeq atomic.Int64

// MemoryDatabaseURL returns a SQLite URL for a private in-memory database.
// The database lives as long as at least one connection to it is open.
func MemoryDatabaseURL(t testing.TB) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, memoryDBSeq.Add(1))
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global PostgreSQL advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, db *sql.DB) (func() error, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncatePostgres empties the application tables and restarts identities.
func TruncatePostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "TRUNCATE tasks, users RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an active test user with sensible defaults.
// The password hash is a placeholder; use auth.HashPassword when login matters.
func NewTestUser(t testing.TB, username string) *model.User {
	t.Helper()
	return &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
}

// NewTestTask creates a pending, medium priority test task.
func NewTestTask(t testing.TB, title string) *model.Task {
	t.Helper()
	return &model.Task{
		Title:       title,
		Description: "created by tests",
		Status:      model.TaskStatusPending,
		Priority:    model.TaskPriorityMedium,
	}
}

// NewTestTaskDue creates a test task with a due date offset from now.
func NewTestTaskDue(t testing.TB, title string, in time.Duration) *model.Task {
	t.Helper()
	task := NewTestTask(t, title)
	due := time.Now().UTC().Add(in).Truncate(time.Second)
	task.DueDate = &due
	return task
}
