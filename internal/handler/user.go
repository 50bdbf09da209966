package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/handler/dto"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// UserService is the user business logic the handlers call.
type UserService interface {
	ListUsers(ctx context.Context, input service.ListUsersInput) service.Result[[]*model.User]
	GetUser(ctx context.Context, id int64) service.Result[*model.User]
	GetUserByUsername(ctx context.Context, username string) service.Result[*model.User]
	GetUserByEmail(ctx context.Context, email string) service.Result[*model.User]
	CreateUser(ctx context.Context, input service.CreateUserInput) service.Result[*model.User]
	UpdateUser(ctx context.Context, id int64, input service.UpdateUserInput) service.Result[*model.User]
	DeleteUser(ctx context.Context, id int64) service.Result[*model.User]
	ActivateUser(ctx context.Context, id int64) service.Result[*model.User]
	DeactivateUser(ctx context.Context, id int64) service.Result[*model.User]
	GetStats(ctx context.Context) service.Result[*model.UserStats]
	Login(ctx context.Context, input service.LoginInput) service.Result[*model.User]
	IssueAPIKey(ctx context.Context, id int64) service.Result[*service.IssuedAPIKey]
	AuthenticateAPIKey(ctx context.Context, apiKey string) service.Result[*model.AuthContext]
}

// UserHandler handles HTTP requests for user operations.
// Inputs are validated by middleware before a handler runs.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	input := middleware.Query[service.ListUsersInput](r.Context())
	respond(w, r, h.logger, h.svc.ListUsers(r.Context(), input), http.StatusOK, dto.ToUsers)
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	respond(w, r, h.logger, h.svc.GetUser(r.Context(), id), http.StatusOK, dto.ToUser)
}

// GetByUsername handles GET /users/username/{username}.
func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := middleware.Param[string](r.Context(), "username")
	respond(w, r, h.logger, h.svc.GetUserByUsername(r.Context(), username), http.StatusOK, dto.ToUser)
}

// GetByEmail handles GET /users/email/{email}.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := middleware.Param[string](r.Context(), "email")
	respond(w, r, h.logger, h.svc.GetUserByEmail(r.Context(), email), http.StatusOK, dto.ToUser)
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	input := middleware.Body[service.CreateUserInput](r.Context())

	res := h.svc.CreateUser(r.Context(), input)
	if res.Success {
		h.logger.Info("user_created", "user_id", res.Data.ID)
	}
	respond(w, r, h.logger, res, http.StatusCreated, dto.ToUser)
}

// Update handles PUT /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	input := middleware.Body[service.UpdateUserInput](r.Context())
	respond(w, r, h.logger, h.svc.UpdateUser(r.Context(), id, input), http.StatusOK, dto.ToUser)
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")

	res := h.svc.DeleteUser(r.Context(), id)
	if res.Success {
		h.logger.Info("user_deleted", "user_id", id)
	}
	respond(w, r, h.logger, res, http.StatusOK, dto.ToUser)
}

// Activate handles POST /users/{id}/activate.
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	respond(w, r, h.logger, h.svc.ActivateUser(r.Context(), id), http.StatusOK, dto.ToUser)
}

// Deactivate handles POST /users/{id}/deactivate.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")
	respond(w, r, h.logger, h.svc.DeactivateUser(r.Context(), id), http.StatusOK, dto.ToUser)
}

// Stats handles GET /users/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.logger, h.svc.GetStats(r.Context()), http.StatusOK, func(s *model.UserStats) *model.UserStats { return s })
}

// Login handles POST /users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	input := middleware.Body[service.LoginInput](r.Context())
	respond(w, r, h.logger, h.svc.Login(r.Context(), input), http.StatusOK, dto.ToUser)
}

// IssueAPIKey handles POST /users/{id}/api-key. The key is shown only in this response.
func (h *UserHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param[int64](r.Context(), "id")

	res := h.svc.IssueAPIKey(r.Context(), id)
	if res.Success {
		h.logger.Info("api_key_issued",
			"user_id", id,
			"key_prefix", res.Data.User.APIKeyPrefix,
		)
	}
	respond(w, r, h.logger, res, http.StatusCreated, func(k *service.IssuedAPIKey) dto.IssuedAPIKey {
		return dto.IssuedAPIKey{User: dto.ToUser(k.User), APIKey: k.APIKey}
	})
}

// Me handles GET /users/me. It requires the API key middleware.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeFailure(w, r, h.logger, service.KindUnauthorized, service.MsgInvalidAPIKey, nil)
		return
	}
	respond(w, r, h.logger, h.svc.GetUser(r.Context(), authCtx.UserID), http.StatusOK, dto.ToUser)
}
