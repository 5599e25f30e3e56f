package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/agenda-booking/internal/application"
)

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			validatorErr   error
			expectedStatus int
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "non bearer header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "revoked session",
				cookieToken:    &http.Cookie{Name: "session_token", Value: "revoked-token"},
				validatorErr:   application.ErrSessionRevoked,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "expired session",
				headerToken:    "Bearer old",
				validatorErr:   application.ErrSessionExpired,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "storage failure",
				headerToken:    "Bearer any",
				validatorErr:   errors.New("database is locked"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				validator := &fakeSessionValidator{err: tc.validatorErr}
				handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Error("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected %d, got %d", tc.expectedStatus, recorder.Code)
				}
				if !strings.Contains(recorder.Body.String(), `"message"`) {
					t.Fatalf("expected JSON error body, got %s", recorder.Body.String())
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: "user-123", IsAdmin: true, Role: application.RoleAdmin}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
		recorder := httptest.NewRecorder()

		validator := &fakeSessionValidator{principal: principal}
		var captured application.Principal
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Error("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if captured != principal {
			t.Fatalf("expected %+v, got %+v", principal, captured)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "valid-token" {
			t.Fatalf("unexpected validated tokens %v", validator.tokens)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Error("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := buf.String()
	if !strings.Contains(out, `"request_id":1`) || !strings.Contains(out, `"status":418`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("limits each client independently", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 2, Now: func() time.Time { return now }})

		if !limiter.Allow("a") || !limiter.Allow("a") {
			t.Fatal("expected burst to be allowed")
		}
		if limiter.Allow("a") {
			t.Fatal("expected third request to be limited")
		}
		if !limiter.Allow("b") {
			t.Fatal("expected another client to be allowed")
		}
		now = now.Add(time.Minute)
		if !limiter.Allow("a") {
			t.Fatal("expected a token after one minute")
		}
	})

	t.Run("middleware answers 429 for counted methods only", func(t *testing.T) {
		t.Parallel()

		limiter := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1})
		handler := limiter.Middleware(discardLogger(), http.MethodPost)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		send := func(method string) int {
			req := httptest.NewRequest(method, "/public/agendas/x/appointments", nil)
			req.RemoteAddr = "203.0.113.7:5555"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		if code := send(http.MethodPost); code != http.StatusNoContent {
			t.Fatalf("expected first POST through, got %d", code)
		}
		if code := send(http.MethodPost); code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", code)
		}
		if code := send(http.MethodGet); code != http.StatusNoContent {
			t.Fatalf("expected GET to bypass the limiter, got %d", code)
		}
	})

	t.Run("forwarded addresses only when trusted", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")

		if got := NewRateLimiter(RateLimitConfig{}).clientIP(req); got != "10.0.0.1" {
			t.Fatalf("expected remote address, got %q", got)
		}
		if got := NewRateLimiter(RateLimitConfig{TrustForwardedFor: true}).clientIP(req); got != "198.51.100.2" {
			t.Fatalf("expected forwarded address, got %q", got)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	var down error
	handler := NewRouter(RouterConfig{Health: func(context.Context) error { return down }})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 while storage answers, got %d", rec.Code)
	}

	down = errors.New("database is closed")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when storage fails, got %d", rec.Code)
	}
}
