package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/agenda-booking/internal/application"
)

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID string) error
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

// UserHandler serves the administrator-only user management endpoints.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "List", "principal_id", principal.UserID)

	users, err := h.service.ListUsers(ctx, principal)
	if err != nil {
		h.responder.fail(ctx, w, logger, "user list failed", err)
		return
	}
	logger.InfoContext(ctx, "users listed", "result_count", len(users))
	h.responder.writeJSON(ctx, w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Create", "principal_id", principal.UserID)

	var req userRequest
	if !h.responder.decode(w, r, logger, &req) {
		return
	}
	user, err := h.service.CreateUser(ctx, application.CreateUserParams{Principal: principal, Input: req.toInput()})
	if err != nil {
		h.responder.fail(ctx, w, logger, "user creation failed", err)
		return
	}
	logger.InfoContext(ctx, "user created", "user_id", user.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	userID, ok := PathParamFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Update", "principal_id", principal.UserID, "user_id", userID)

	var req userRequest
	if !h.responder.decode(w, r, logger, &req) {
		return
	}
	user, err := h.service.UpdateUser(ctx, application.UpdateUserParams{Principal: principal, UserID: userID, Input: req.toInput()})
	if err != nil {
		h.responder.fail(ctx, w, logger, "user update failed", err)
		return
	}
	logger.InfoContext(ctx, "user updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	userID, ok := PathParamFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidUserID)
		return
	}
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Delete", "principal_id", principal.UserID, "user_id", userID)

	if err := h.service.DeleteUser(ctx, principal, userID); err != nil {
		h.responder.fail(ctx, w, logger, "user delete failed", err)
		return
	}
	logger.InfoContext(ctx, "user deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// userRequest carries the editable user fields. An empty password on update
// keeps the stored one.
type userRequest struct {
	Name     string `json:"name"`
	Login    string `json:"login"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Name:     strings.TrimSpace(r.Name),
		Login:    strings.TrimSpace(r.Login),
		Password: r.Password,
		Role:     application.Role(strings.TrimSpace(r.Role)),
		Status:   application.Status(strings.TrimSpace(r.Status)),
	}
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

type userDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Name:      user.Name,
		Login:     user.Login,
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: formatTimestamp(user.CreatedAt),
		UpdatedAt: formatTimestamp(user.UpdatedAt),
	}
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

// formatTimestamp renders instants as RFC 3339 in UTC; zero times become "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
