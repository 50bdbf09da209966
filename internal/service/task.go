package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
)

// MsgTaskNotFound is returned for missing or deleted tasks.
const MsgTaskNotFound = "Task not found"

const maxTitleLength = 200

// TaskStore is the persistence the task service needs.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	SoftDeleteTask(ctx context.Context, id int64) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// TaskService handles task business logic.
type TaskService struct {
	repo    TaskStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo TaskStore, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		repo:    repo,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListTasksInput defines filters for listing tasks.
type ListTasksInput struct {
	UserID    *int64
	Status    model.TaskStatus
	Priority  model.TaskPriority
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus   // defaults to pending
	Priority    model.TaskPriority // defaults to medium
	DueDate     *time.Time
	UserID      *int64
}

// UpdateTaskInput defines a partial task update. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	DueDate     *time.Time
	UserID      *int64
	// ClearDueDate and UnassignUser win over DueDate and UserID.
	ClearDueDate bool
	UnassignUser bool
}

// ListTasks returns live tasks matching the filters, newest first by default.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) Result[[]*model.Task] {
	limit, offset := pageWindow(input.Page, input.Limit)

	filter := repository.TaskFilter{
		UserID:   input.UserID,
		Status:   input.Status,
		Priority: input.Priority,
		SortBy:   input.SortBy,
		SortDesc: input.SortOrder == "desc",
		Limit:    limit,
		Offset:   offset,
	}

	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return Internal[[]*model.Task](err)
	}
	return OK(tasks, "")
}

// ListUserTasks returns the live tasks assigned to a user.
func (s *TaskService) ListUserTasks(ctx context.Context, userID int64, input ListTasksInput) Result[[]*model.Task] {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Fail[[]*model.Task](KindNotFound, MsgUserNotFound, err)
		}
		return Internal[[]*model.Task](err)
	}

	input.UserID = &userID
	return s.ListTasks(ctx, input)
}

// GetTask returns a live task by ID.
func (s *TaskService) GetTask(ctx context.Context, id int64) Result[*model.Task] {
	task, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return s.taskFailure(err)
	}
	return OK(task, "")
}

// CreateTask creates a new task.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) Result[*model.Task] {
	now := s.now()
	task := &model.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		UserID:      input.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}

	if problems := s.validate(task, input.DueDate != nil); len(problems) > 0 {
		return Invalid[*model.Task](strings.Join(problems, "; "))
	}
	if res, missing := s.checkAssignee(ctx, task.UserID); missing {
		return res
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return s.taskFailure(err)
	}

	s.metrics.IncTaskCreated()
	return OK(task, "Task created successfully")
}

// UpdateTask applies a partial update to a live task.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, input UpdateTaskInput) Result[*model.Task] {
	task, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return s.taskFailure(err)
	}

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	switch {
	case input.ClearDueDate:
		task.DueDate = nil
	case input.DueDate != nil:
		task.DueDate = input.DueDate
	}
	switch {
	case input.UnassignUser:
		task.UserID = nil
	case input.UserID != nil:
		task.UserID = input.UserID
	}

	// An existing past due date is kept as is; only a newly set one is checked.
	if problems := s.validate(task, input.DueDate != nil); len(problems) > 0 {
		return Invalid[*model.Task](strings.Join(problems, "; "))
	}
	if input.UserID != nil && !input.UnassignUser {
		if res, missing := s.checkAssignee(ctx, input.UserID); missing {
			return res
		}
	}

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return s.taskFailure(err)
	}

	s.metrics.IncTaskUpdated()
	return OK(task, "Task updated successfully")
}

// DeleteTask soft-deletes a task.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) Result[*model.Task] {
	task, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return s.taskFailure(err)
	}

	if err := s.repo.SoftDeleteTask(ctx, id); err != nil {
		return s.taskFailure(err)
	}

	s.metrics.IncTaskDeleted()
	return OK(task, "Task deleted successfully")
}

// validate checks the business rules of a task.
func (s *TaskService) validate(task *model.Task, checkDueDate bool) []string {
	var problems []string

	if task.Title == "" {
		problems = append(problems, "Title is required")
	}
	if len([]rune(task.Title)) > maxTitleLength {
		problems = append(problems, fmt.Sprintf("Title must be at most %d characters", maxTitleLength))
	}
	if !task.Status.IsValid() {
		problems = append(problems, "Invalid status")
	}
	if !task.Priority.IsValid() {
		problems = append(problems, "Invalid priority")
	}
	if checkDueDate && task.DueDate != nil && task.DueDate.Before(s.now()) {
		problems = append(problems, "Due date cannot be in the past")
	}

	return problems
}

func (s *TaskService) checkAssignee(ctx context.Context, userID *int64) (Result[*model.Task], bool) {
	if userID == nil {
		return Result[*model.Task]{}, false
	}

	_, err := s.repo.GetUserByID(ctx, *userID)
	switch {
	case err == nil:
		return Result[*model.Task]{}, false
	case errors.Is(err, repository.ErrUserNotFound):
		return Invalid[*model.Task](fmt.Sprintf("user %d does not exist", *userID)), true
	default:
		return Internal[*model.Task](err), true
	}
}

func (s *TaskService) taskFailure(err error) Result[*model.Task] {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound):
		return Fail[*model.Task](KindNotFound, MsgTaskNotFound, err)
	case errors.Is(err, repository.ErrUserReference):
		return Fail[*model.Task](KindValidation, validationErrorPrefix+"assigned user does not exist", err)
	default:
		return Internal[*model.Task](err)
	}
}
