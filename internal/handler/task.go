package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskflow/taskflow/internal/handler/dto"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// TaskService is the task business logic the handlers call.
type TaskService interface {
	ListTasks(ctx context.Context, input service.ListTasksInput) service.Result[[]*model.Task]
	ListUserTasks(ctx context.Context, userID int64, input service.ListTasksInput) service.Result[[]*model.Task]
	GetTask(ctx context.Context, id int64) service.Result[*model.Task]
	CreateTask(ctx context.Context, input service.CreateTaskInput) service.Result[*model.Task]
	UpdateTask(ctx context.Context, id int64, input service.UpdateTaskInput) service.Result[*model.Task]
	DeleteTask(ctx context.Context, id int64) service.Result[*model.Task]
}

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	svc    TaskService
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger, now: time.Now}
}

func (h *TaskHandler) view(t *model.Task) dto.Task {
	return dto.ToTask(t, h.now())
}

func (h *TaskHandler) listView(tasks []*model.Task) []dto.Task {
	return dto.ToTasks(tasks, h.now())
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	input := middleware.Query[service.ListTasksInput](r.Context())
	respond(w, r, h.logger, h.svc.ListTasks(r.Context(), input), http.StatusOK, h.listView)
}

// ListForUser handles GET /users/{id}/tasks.
func (h *TaskHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.Param[int64](r.Context(), "id")
	input := middleware.Query[service.ListTasksInput](r.Context())
	respond(w, r, h.logger, h.svc.ListUserTasks(r.Context(), userID, input), http.StatusOK, h.listView)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	respond(w, r, h.logger, h.svc.GetTask(r.Context(), id), http.StatusOK, h.view)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	input := middleware.Body[service.CreateTaskInput](r.Context())

	res := h.svc.CreateTask(r.Context(), input)
	if res.Success {
		h.logger.Info("task_created",
			"task_id", res.Data.ID,
			"assigned", res.Data.IsAssigned(),
		)
	}
	respond(w, r, h.logger, res, http.StatusCreated, h.view)
}

// Update handles PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	input := middleware.Body[service.UpdateTaskInput](r.Context())
	respond(w, r, h.logger, h.svc.UpdateTask(r.Context(), id, input), http.StatusOK, h.view)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")

	res := h.svc.DeleteTask(r.Context(), id)
	if res.Success {
		h.logger.Info("task_deleted", "task_id", id)
	}
	respond(w, r, h.logger, res, http.StatusOK, h.view)
}
