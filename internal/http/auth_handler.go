package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/agenda-booking/internal/application"
)

const sessionCookieName = "session_token"

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RefreshSession(ctx context.Context, params application.RefreshSessionParams) (application.RefreshSessionResult, error)
	RevokeSession(ctx context.Context, token string) error
}

// AuthHandler opens, rotates and closes administrative sessions.
type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// CreateSession handles POST /sessions.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()

	var req loginRequest
	if !h.responder.decode(w, r, h.log(ctx, "CreateSession"), &req) {
		return
	}
	login := strings.ToLower(strings.TrimSpace(req.Login))
	logger := h.log(ctx, "CreateSession", "login", login)

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Login:       login,
		Password:    req.Password,
		Fingerprint: r.UserAgent(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "authentication rejected", err)
		return
	}

	issueSession(w, result.Session)
	logger.InfoContext(ctx, "user authenticated", "user_id", result.User.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: formatTimestamp(result.Session.ExpiresAt),
		User:      toUserDTO(result.User),
	})
}

// CurrentSession handles GET /sessions/current.
func (h *AuthHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, principalDTO{
		UserID:  principal.UserID,
		Role:    string(principal.Role),
		IsAdmin: principal.IsAdmin,
	})
}

// RefreshCurrentSession handles PUT /sessions/current: the token is rotated
// and its lifetime restarted.
func (h *AuthHandler) RefreshCurrentSession(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "RefreshCurrentSession")

	result, err := h.service.RefreshSession(ctx, application.RefreshSessionParams{
		Token:       extractTokenFromRequest(r),
		Fingerprint: r.UserAgent(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "session refresh failed", err)
		return
	}

	issueSession(w, result.Session)
	logger.InfoContext(ctx, "session refreshed", "user_id", result.Session.UserID)
	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{
		Token:     result.Session.Token,
		ExpiresAt: formatTimestamp(result.Session.ExpiresAt),
	})
}

// DeleteCurrentSession handles DELETE /sessions/current.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "DeleteCurrentSession")

	if err := h.service.RevokeSession(ctx, extractTokenFromRequest(r)); err != nil {
		h.responder.fail(ctx, w, logger, "session revocation failed", err)
		return
	}

	http.SetCookie(w, sessionCookie("", time.Unix(0, 0)))
	logger.InfoContext(ctx, "session closed")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type principalDTO struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// issueSession hands the token to the client as a cookie and a header.
func issueSession(w http.ResponseWriter, session application.Session) {
	http.SetCookie(w, sessionCookie(session.Token, session.ExpiresAt))
	w.Header().Set("X-Session-Token", session.Token)
}

func sessionCookie(token string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	return cookie
}

// extractTokenFromRequest reads a bearer token, falling back to the session cookie.
func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
