// Package logging carries request-scoped identifiers through context and
// exposes a context-aware logger used by the HTTP middleware.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/grihome/grihome/pkg/logger"
)

type contextKey string

const (
	// TraceIDKey identifies the request trace in context.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey identifies the authenticated user in context.
	UserIDKey contextKey = "user_id"
	// RoleKey identifies the authenticated user's role in context.
	RoleKey contextKey = "role"
)

// NewTraceID returns a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID from context, or empty string.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user ID from context, or empty string.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRole stores the authenticated user's role in the context.
func WithRole(ctx context.Context, role string) context.Context {
	if role == "" {
		return ctx
	}
	return context.WithValue(ctx, RoleKey, role)
}

// GetRole returns the authenticated user's role from context, or empty string.
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}

// Logger decorates log lines with whatever identifiers the context carries.
type Logger struct {
	log *logger.Logger
}

// NewLogger wraps a base logger. A nil base gets a default.
func NewLogger(base *logger.Logger) *Logger {
	if base == nil {
		base = logger.NewDefault("http")
	}
	return &Logger{log: base}
}

// WithContext returns the underlying logger annotated with trace/user/role
// fields found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logger.Logger {
	out := l.log
	if traceID := GetTraceID(ctx); traceID != "" {
		out = out.WithField("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		out = out.WithField("user_id", userID)
	}
	if role := GetRole(ctx); role != "" {
		out = out.WithField("role", role)
	}
	return out
}

// LogRequest emits the per-request access log line.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Info("request completed")
}

// LogSecurityEvent emits a warning-level security event with details.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, details map[string]interface{}) {
	l.WithContext(ctx).WithField("event", event).WithFields(details).Warn("security event")
}
