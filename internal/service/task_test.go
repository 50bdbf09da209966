package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

func TestTaskService_CreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "  Write report  "})
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}
	task := res.Data
	if task.Title != "Write report" {
		t.Errorf("Title = %q, want trimmed", task.Title)
	}
	if task.Status != model.TaskStatusPending || task.Priority != model.TaskPriorityMedium {
		t.Errorf("defaults = %s/%s, want pending/medium", task.Status, task.Priority)
	}
	if task.UserID != nil || task.DueDate != nil {
		t.Errorf("unexpected optional fields: %+v", task)
	}
	if res.Message != "Task created successfully" {
		t.Errorf("Message = %q", res.Message)
	}
	if got := env.metrics.Snapshot().TasksCreated; got != 1 {
		t.Errorf("TasksCreated = %d, want 1", got)
	}
}

func TestTaskService_CreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-48 * time.Hour)
	missingUser := int64(4040)

	tests := []struct {
		name    string
		input   CreateTaskInput
		wantErr string
	}{
		{
			name:    "blank title",
			input:   CreateTaskInput{Title: "   "},
			wantErr: "Validation error: Title is required",
		},
		{
			name:    "long title",
			input:   CreateTaskInput{Title: strings.Repeat("x", 201)},
			wantErr: "Validation error: Title must be at most 200 characters",
		},
		{
			name:    "bad status",
			input:   CreateTaskInput{Title: "t", Status: "archived"},
			wantErr: "Validation error: Invalid status",
		},
		{
			name:    "past due date",
			input:   CreateTaskInput{Title: "t", DueDate: &past},
			wantErr: "Validation error: Due date cannot be in the past",
		},
		{
			name:    "several problems",
			input:   CreateTaskInput{Title: "", Priority: "critical"},
			wantErr: "Validation error: Title is required; Invalid priority",
		},
		{
			name:    "unknown assignee",
			input:   CreateTaskInput{Title: "t", UserID: &missingUser},
			wantErr: "Validation error: user 4040 does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.tasks.CreateTask(ctx, tt.input)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Kind != KindValidation || res.Error != tt.wantErr {
				t.Errorf("got %v %q, want validation %q", res.Kind, res.Error, tt.wantErr)
			}
		})
	}

	if got := env.metrics.Snapshot().TasksCreated; got != 0 {
		t.Errorf("TasksCreated = %d, want 0", got)
	}
}

func TestTaskService_GetTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "quinn")
	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	created := env.tasks.CreateTask(ctx, CreateTaskInput{
		Title:    "Ship it",
		Priority: model.TaskPriorityHigh,
		DueDate:  &due,
		UserID:   &owner.ID,
	})
	if !created.Success {
		t.Fatalf("create: %s", created.Error)
	}

	got := env.tasks.GetTask(ctx, created.Data.ID)
	if !got.Success {
		t.Fatalf("get: %s", got.Error)
	}
	if got.Data.Title != "Ship it" || got.Data.Priority != model.TaskPriorityHigh {
		t.Errorf("unexpected task: %+v", got.Data)
	}
	if got.Data.UserID == nil || *got.Data.UserID != owner.ID {
		t.Errorf("UserID = %v, want %d", got.Data.UserID, owner.ID)
	}
	if got.Data.DueDate == nil || !got.Data.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.Data.DueDate, due)
	}

	if res := env.tasks.GetTask(ctx, 777); res.Kind != KindNotFound || res.Error != MsgTaskNotFound {
		t.Errorf("missing task: %+v", res)
	}
}

func TestTaskService_UpdateTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "rupert")
	task := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Draft"}).Data

	status := model.TaskStatusInProgress
	res := env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{
		Title:  ptr("Final"),
		Status: &status,
		UserID: &owner.ID,
	})
	if !res.Success {
		t.Fatalf("update: %s", res.Error)
	}
	if res.Data.Title != "Final" || res.Data.Status != status || res.Data.Priority != model.TaskPriorityMedium {
		t.Errorf("unexpected update: %+v", res.Data)
	}
	if res.Message != "Task updated successfully" {
		t.Errorf("Message = %q", res.Message)
	}

	reread := env.tasks.GetTask(ctx, task.ID).Data
	if reread.Title != "Final" || reread.UserID == nil || *reread.UserID != owner.ID {
		t.Errorf("update not persisted: %+v", reread)
	}

	due := time.Now().Add(48 * time.Hour).UTC()
	if res := env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{DueDate: &due}); res.Data == nil || res.Data.DueDate == nil {
		t.Fatalf("set due date: %+v", res)
	}
	cleared := env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{UnassignUser: true, ClearDueDate: true, UserID: &owner.ID})
	if !cleared.Success || cleared.Data.UserID != nil || cleared.Data.DueDate != nil {
		t.Errorf("clear flags ignored: %+v", cleared.Data)
	}

	bad := model.TaskStatus("done")
	missing := int64(5150)
	tests := []struct {
		name     string
		id       int64
		input    UpdateTaskInput
		wantKind Kind
	}{
		{"invalid status", task.ID, UpdateTaskInput{Status: &bad}, KindValidation},
		{"empty title", task.ID, UpdateTaskInput{Title: ptr("")}, KindValidation},
		{"unknown assignee", task.ID, UpdateTaskInput{UserID: &missing}, KindValidation},
		{"missing task", 9999, UpdateTaskInput{Title: ptr("x")}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := env.tasks.UpdateTask(ctx, tt.id, tt.input); res.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v (%s)", res.Kind, tt.wantKind, res.Error)
			}
		})
	}
}

func TestTaskService_DeleteTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Temporary"}).Data

	res := env.tasks.DeleteTask(ctx, task.ID)
	if !res.Success || res.Data.ID != task.ID || res.Message != "Task deleted successfully" {
		t.Fatalf("delete: %+v", res)
	}

	if get := env.tasks.GetTask(ctx, task.ID); get.Kind != KindNotFound {
		t.Errorf("get after delete kind = %v", get.Kind)
	}
	if again := env.tasks.DeleteTask(ctx, task.ID); again.Kind != KindNotFound {
		t.Errorf("second delete kind = %v", again.Kind)
	}
	if upd := env.tasks.UpdateTask(ctx, task.ID, UpdateTaskInput{Title: ptr("back")}); upd.Kind != KindNotFound {
		t.Errorf("update after delete kind = %v", upd.Kind)
	}

	list := env.tasks.ListTasks(ctx, ListTasksInput{})
	if len(list.Data) != 0 {
		t.Errorf("deleted task still listed: %v", list.Data)
	}
}

func TestTaskService_ListTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "sybil")

	high := model.TaskPriorityHigh
	for _, in := range []CreateTaskInput{
		{Title: "a", Priority: high, UserID: &owner.ID},
		{Title: "b", Status: model.TaskStatusCompleted},
		{Title: "c", UserID: &owner.ID},
	} {
		if res := env.tasks.CreateTask(ctx, in); !res.Success {
			t.Fatalf("create %s: %s", in.Title, res.Error)
		}
	}

	tests := []struct {
		name  string
		input ListTasksInput
		want  []string
	}{
		{"by title", ListTasksInput{SortBy: "title"}, []string{"a", "b", "c"}},
		{"by title desc", ListTasksInput{SortBy: "title", SortOrder: "desc"}, []string{"c", "b", "a"}},
		{"status filter", ListTasksInput{Status: model.TaskStatusCompleted}, []string{"b"}},
		{"priority filter", ListTasksInput{Priority: high}, []string{"a"}},
		{"owner filter", ListTasksInput{UserID: &owner.ID, SortBy: "title"}, []string{"a", "c"}},
		{"second page", ListTasksInput{SortBy: "title", Page: 2, Limit: 2}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.tasks.ListTasks(ctx, tt.input)
			if !res.Success {
				t.Fatalf("list: %s", res.Error)
			}
			var got []string
			for _, task := range res.Data {
				got = append(got, task.Title)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskService_ListUserTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "trent")
	other := env.createUser(t, "uma")

	env.tasks.CreateTask(ctx, CreateTaskInput{Title: "mine", UserID: &owner.ID})
	env.tasks.CreateTask(ctx, CreateTaskInput{Title: "theirs", UserID: &other.ID})

	res := env.tasks.ListUserTasks(ctx, owner.ID, ListTasksInput{})
	if !res.Success || len(res.Data) != 1 || res.Data[0].Title != "mine" {
		t.Errorf("user tasks: %+v", res)
	}

	if missing := env.tasks.ListUserTasks(ctx, 8888, ListTasksInput{}); missing.Kind != KindNotFound || missing.Error != MsgUserNotFound {
		t.Errorf("missing user: %+v", missing)
	}

	// Deleting the owner unassigns the task rather than removing it.
	env.users.DeleteUser(ctx, other.ID)
	all := env.tasks.ListTasks(ctx, ListTasksInput{SortBy: "title"})
	if len(all.Data) != 2 {
		t.Fatalf("tasks after owner delete = %d, want 2", len(all.Data))
	}
	if all.Data[1].Title != "theirs" || all.Data[1].UserID != nil {
		t.Errorf("orphaned task should be unassigned: %+v", all.Data[1])
	}
}
