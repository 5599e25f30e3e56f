package http

import (
	"context"
	"log/slog"

	"github.com/example/agenda-booking/internal/application"
	"github.com/example/agenda-booking/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	pathParamContextKey contextKey = "path_param"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithPathParam injects the resource identifier resolved from the request path.
func ContextWithPathParam(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, pathParamContextKey, value)
}

// PathParamFromContext extracts the resource identifier previously associated with the context.
func PathParamFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(pathParamContextKey).(string)
	return value, ok && value != ""
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request logger installed by RequestLogger so
// handler entries carry the request id.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}
	logger = logger.With("handler", handlerName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}
