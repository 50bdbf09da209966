package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

type seedUser struct {
	username, email, firstName, lastName string
}

type seedTask struct {
	title, description string
	status             model.TaskStatus
	priority           model.TaskPriority
	due                string
	owner              string // username, empty for unassigned
}

var seedUsers = []seedUser{
	{"john_doe", "john@example.com", "John", "Doe"},
	{"jane_smith", "jane@example.com", "Jane", "Smith"},
	{"bob_johnson", "bob@example.com", "Bob", "Johnson"},
}

var seedTasks = []seedTask{
	{"Fix login bug", "Users cannot login with special characters", model.TaskStatusInProgress, model.TaskPriorityHigh, "2025-10-20 10:00:00", "john_doe"},
	{"Update documentation", "Add API examples to README", model.TaskStatusPending, model.TaskPriorityMedium, "2025-10-25 15:00:00", "jane_smith"},
	{"Review Q4 report", "Financial review for Q4 2024", model.TaskStatusCompleted, model.TaskPriorityHigh, "2025-10-15 09:00:00", "john_doe"},
	{"Design new homepage", "Mockups for redesign", model.TaskStatusPending, model.TaskPriorityLow, "2025-11-01 12:00:00", "bob_johnson"},
	{"Setup CI/CD pipeline", "Configure GitHub Actions", model.TaskStatusPending, model.TaskPriorityHigh, "2025-10-10 14:00:00", "jane_smith"},
	{"Refactor user service", "Clean up legacy code", model.TaskStatusPending, model.TaskPriorityMedium, "2025-10-22 16:00:00", ""},
}

// SeedResult reports how many rows Seed inserted.
type SeedResult struct {
	Users int
	Tasks int
}

// Seed inserts sample users and tasks into empty tables.
// Every sample user gets passwordHash.
func (r *Repository) Seed(ctx context.Context, passwordHash string) (SeedResult, error) {
	var result SeedResult

	var userCount int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return result, fmt.Errorf("failed to count users: %w", err)
	}

	if userCount == 0 {
		for _, su := range seedUsers {
			user := &model.User{
				Username:     su.username,
				Email:        su.email,
				PasswordHash: passwordHash,
				FirstName:    su.firstName,
				LastName:     su.lastName,
				IsActive:     true,
			}
			if err := r.CreateUser(ctx, user); err != nil {
				return result, fmt.Errorf("failed to seed user %s: %w", su.username, err)
			}
			result.Users++
		}
	}

	var taskCount int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&taskCount); err != nil {
		return result, fmt.Errorf("failed to count tasks: %w", err)
	}
	if taskCount > 0 {
		return result, nil
	}

	for _, st := range seedTasks {
		due, err := time.Parse(time.DateTime, st.due)
		if err != nil {
			return result, fmt.Errorf("invalid seed due date %q: %w", st.due, err)
		}

		task := &model.Task{
			Title:       st.title,
			Description: st.description,
			Status:      st.status,
			Priority:    st.priority,
			DueDate:     &due,
		}

		if st.owner != "" {
			owner, err := r.GetUserByUsername(ctx, st.owner)
			if err != nil && !errors.Is(err, ErrUserNotFound) {
				return result, err
			}
			if owner != nil {
				task.UserID = &owner.ID
			}
		}

		if err := r.CreateTask(ctx, task); err != nil {
			return result, fmt.Errorf("failed to seed task %q: %w", st.title, err)
		}
		result.Tasks++
	}

	return result, nil
}
