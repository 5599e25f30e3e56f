package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SeedAdminID identifies the administrator created on first start. It can
// never be deleted, demoted or deactivated.
const SeedAdminID = "1"

// UserRepository captures the persistence operations needed by the user service.
// UpdateUser keeps the stored hash when the credentials carry an empty one.
type UserRepository interface {
	CreateUser(ctx context.Context, user UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user UserCredentials) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hasher, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	normalized := normalizeUserInput(params.Input)
	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID, "login", normalized.Login)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		return User{}, ErrUnauthorized
	}
	if vErr := validateUserInput(normalized, true); vErr.HasErrors() {
		return User{}, vErr
	}
	return s.create(ctx, s.idGenerator(), normalized)
}

// UpdateUser validates input and updates an existing user for administrators.
// An empty password keeps the current one.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateUser", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	existing, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}

	normalized := normalizeUserInput(params.Input)
	if vErr := validateUserInput(normalized, false); vErr.HasErrors() {
		return User{}, vErr
	}
	if existing.ID == SeedAdminID && (normalized.Role != RoleAdmin || normalized.Status != StatusActive) {
		return User{}, ErrProtectedUser
	}

	updated := existing
	updated.Name = normalized.Name
	updated.Login = normalized.Login
	updated.Role = normalized.Role
	updated.Status = normalized.Status
	updated.UpdatedAt = s.now()

	creds := UserCredentials{User: updated}
	if normalized.Password != "" {
		if creds.PasswordHash, err = s.hashPassword(normalized.Password); err != nil {
			return User{}, fmt.Errorf("hash user password: %w", err)
		}
	}

	user, err = s.users.UpdateUser(ctx, creds)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// DeleteUser removes a user when requested by an administrator. The seed
// administrator and the acting principal cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if userID == SeedAdminID || userID == principal.UserID {
		return ErrProtectedUser
	}
	if err = s.users.DeleteUser(ctx, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// ListUsers returns all users for administrators ordered by name.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]User, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Name, out[j].Name) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// EnsureSeedAdmin creates the seed administrator when no user exists yet. It
// reports whether a user was created.
func (s *UserService) EnsureSeedAdmin(ctx context.Context, login, password string) (created bool, err error) {
	if s == nil {
		return false, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return false, fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "EnsureSeedAdmin", "login", normalizeLogin(login))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed administrator", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if created {
			logger.InfoContext(ctx, "seed administrator created")
		}
	}()

	existing, err := s.users.ListUsers(ctx)
	if err != nil {
		return false, mapRepoError(err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	input := normalizeUserInput(UserInput{
		Name:     "Administrador",
		Login:    login,
		Password: password,
		Role:     RoleAdmin,
		Status:   StatusActive,
	})
	if vErr := validateUserInput(input, true); vErr.HasErrors() {
		return false, vErr
	}
	if _, err = s.create(ctx, SeedAdminID, input); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) create(ctx context.Context, id string, input UserInput) (User, error) {
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash user password: %w", err)
	}
	now := s.now()
	user, err := s.users.CreateUser(ctx, UserCredentials{
		User: User{
			ID:        id,
			Name:      input.Name,
			Login:     input.Login,
			Role:      input.Role,
			Status:    input.Status,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	})
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

func normalizeUserInput(input UserInput) UserInput {
	out := UserInput{
		Name:     strings.TrimSpace(input.Name),
		Login:    normalizeLogin(input.Login),
		Password: input.Password,
		Role:     Role(strings.ToLower(strings.TrimSpace(string(input.Role)))),
		Status:   Status(strings.ToLower(strings.TrimSpace(string(input.Status)))),
	}
	if out.Role == "" {
		out.Role = RoleViewer
	}
	if out.Status == "" {
		out.Status = StatusActive
	}
	return out
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	switch {
	case input.Login == "":
		vErr.add("login", "login is required")
	case strings.ContainsAny(input.Login, " \t\r\n"):
		vErr.add("login", "login must not contain spaces")
	}
	if requirePassword && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Role != RoleAdmin && input.Role != RoleViewer {
		vErr.add("role", "role must be admin or viewer")
	}
	if input.Status != StatusActive && input.Status != StatusInactive {
		vErr.add("status", "status must be active or inactive")
	}
	return vErr
}

// normalizeLogin trims and lower-cases a login so lookups ignore case.
func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
