package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultSessionTTL applies when the configured session lifetime is not positive.
const DefaultSessionTTL = 24 * time.Hour

// CredentialStore resolves users and their password hashes for sign in.
type CredentialStore interface {
	GetUserCredentialsByLogin(ctx context.Context, login string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository stores issued session tokens.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService signs administrators and viewers in and tracks their sessions.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	newToken       func() string
	now            func() time.Time
	ttl            time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService without a dedicated logger.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService. A nil verifier checks
// Argon2id hashes; a non-positive TTL falls back to DefaultSessionTTL.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: verify,
		newToken:       tokenGenerator,
		now:            now,
		ttl:            sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate checks a login and password and opens a session for the user.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		return AuthenticateResult{}, fmt.Errorf("AuthService is nil")
	}

	login := normalizeLogin(params.Login)
	logger := s.loggerWith(ctx, "Authenticate", "login", login)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authentication succeeded", "user_id", result.User.ID, "session_id", result.Session.ID)
	}()

	user, err := s.checkCredentials(ctx, login, params.Password)
	if err != nil {
		return AuthenticateResult{}, err
	}

	session, err := s.openSession(ctx, user.ID, params.Fingerprint)
	if err != nil {
		return AuthenticateResult{}, err
	}
	return AuthenticateResult{User: user, Session: session}, nil
}

// checkCredentials resolves the user behind a login. Inactive accounts are
// reported only once the password matched.
func (s *AuthService) checkCredentials(ctx context.Context, login, password string) (User, error) {
	if s.credentials == nil {
		return User{}, fmt.Errorf("credential store not configured")
	}
	if login == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	creds, err := s.credentials.GetUserCredentialsByLogin(ctx, login)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if s.verifyPassword(creds.PasswordHash, password) != nil {
		return User{}, ErrInvalidCredentials
	}
	if creds.User.Status != StatusActive {
		return User{}, ErrAccountDisabled
	}
	return creds.User, nil
}

func (s *AuthService) openSession(ctx context.Context, userID, fingerprint string) (Session, error) {
	now := s.now()
	session := Session{
		ID:          s.newToken(),
		UserID:      userID,
		Token:       s.newToken(),
		Fingerprint: strings.TrimSpace(fingerprint),
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if session.Token == "" {
		session.Token = session.ID
	}
	if s.sessions == nil {
		return session, nil
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return Session{}, err
	}
	return s.sessions.CreateSession(ctx, session)
}

// RefreshSession issues a new token for a live session and restarts its TTL.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		return RefreshSessionResult{}, fmt.Errorf("AuthService is nil")
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session refreshed", "session_id", result.Session.ID, "user_id", result.Session.UserID)
	}()

	session, err := s.liveSession(ctx, token, ErrInvalidCredentials)
	if err != nil {
		return RefreshSessionResult{}, err
	}

	now := s.now()
	if next := s.newToken(); next != "" {
		session.Token = next
	}
	if fingerprint := strings.TrimSpace(params.Fingerprint); fingerprint != "" {
		session.Fingerprint = fingerprint
	}
	session.ExpiresAt = now.Add(s.ttl)
	session.UpdatedAt = now

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return RefreshSessionResult{}, err
	}
	return RefreshSessionResult{Session: session}, nil
}

// RevokeSession ends a session and prunes the expired ones.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	token = strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session revocation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session revoked")
	}()

	if token == "" {
		return ErrInvalidCredentials
	}
	now := s.now()
	if _, err = s.sessions.RevokeSession(ctx, token, now); err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	return s.sessions.DeleteExpiredSessions(ctx, now)
}

// ValidateSession resolves the principal behind a session token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if s.credentials == nil {
		return Principal{}, fmt.Errorf("credential store not configured")
	}

	token = strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session validated", "principal_id", principal.UserID, "role", principal.Role)
	}()

	session, err := s.liveSession(ctx, token, ErrUnauthorized)
	if err != nil {
		return Principal{}, err
	}

	user, err := s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if user.Status != StatusActive {
		return Principal{}, ErrAccountDisabled
	}
	return user.Principal(), nil
}

// liveSession loads a session that is neither revoked nor expired. Unknown
// tokens are reported as missing.
func (s *AuthService) liveSession(ctx context.Context, token string, missing error) (Session, error) {
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	if token == "" {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return Session{}, missing
		}
		return Session{}, err
	}
	return session, sessionState(session, s.now())
}

func sessionState(session Session, now time.Time) error {
	switch {
	case session.RevokedAt != nil && !session.RevokedAt.IsZero():
		return ErrSessionRevoked
	case !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now):
		return ErrSessionExpired
	}
	return nil
}
