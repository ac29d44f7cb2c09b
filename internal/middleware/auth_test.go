package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grihome/grihome/internal/app/services/auth"
	"github.com/grihome/grihome/internal/errors"
	"github.com/grihome/grihome/internal/logging"
	"github.com/grihome/grihome/pkg/logger"
)

type stubValidator struct {
	claims auth.Claims
	err    error
}

func (s stubValidator) ValidateToken(_ context.Context, token string) (auth.Claims, error) {
	if s.err != nil {
		return auth.Claims{}, s.err
	}
	if token != "good-token" {
		return auth.Claims{}, errors.Unauthorized("unknown token")
	}
	return s.claims, nil
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logger.NewDefault("test"))
}

func okHandler(captured *auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.UserID = GetUserID(r.Context())
			captured.Role = GetUserRole(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{}, testLogger(), []string{"/health"})
	handler := m.Handler(okHandler(nil))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{}, testLogger(), nil)
	handler := m.Handler(okHandler(nil))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareHeaderFormat(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{}, testLogger(), nil)
	handler := m.Handler(okHandler(nil))

	for _, header := range []string{"token123", "Basic token123"} {
		req := httptest.NewRequest("GET", "/api/users/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{claims: auth.Claims{UserID: "user-123", Role: "AGENT"}}, testLogger(), nil)

	var captured auth.Claims
	handler := m.Handler(okHandler(&captured))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.UserID != "user-123" || captured.Role != "AGENT" {
		t.Errorf("claims = %+v", captured)
	}
}

func TestAuthMiddlewareRejectedToken(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{}, testLogger(), nil)
	handler := m.Handler(okHandler(nil))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewarePreservesTraceID(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{claims: auth.Claims{UserID: "user-123"}}, testLogger(), nil)

	var capturedTraceID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTraceID = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req = req.WithContext(logging.WithTraceID(req.Context(), "trace-456"))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedTraceID != "trace-456" {
		t.Errorf("trace id = %q, want trace-456", capturedTraceID)
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(okHandler(nil))

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/users/me", nil)
	req = req.WithContext(logging.WithUserID(req.Context(), "user-123"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated: status = %d, want 200", rec.Code)
	}
}
