package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
)

// =============================================================================
// Mock UserService Implementation
// =============================================================================

// mockUserService implements the service.UserService interface for testing.
// Only GetBySessionToken matters to the middleware; the rest return errors.
type mockUserService struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	return errors.New("not implemented")
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	return errors.New("not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) error {
	return errors.New("not implemented")
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	return errors.New("not implemented")
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser(email string) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: email,
		Tier:  domain.TierFree,
	}
}

func middlewareForUser(user *domain.User, adminEmails []string) *AuthMiddleware {
	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token == "valid-token" {
				return user, nil
			}
			return nil, domain.Unauthorized("", "Invalid session.")
		},
	}
	return NewAuthMiddleware(mock, newTestLogger(), false, adminEmails)
}

// =============================================================================
// WithUser Tests
// =============================================================================

func TestWithUser_ValidCookie_SetsUserInContext(t *testing.T) {
	user := testUser("student@example.com")
	mw := middlewareForUser(user, nil)

	var captured *domain.User
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/documents", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if captured == nil {
		t.Fatal("expected user in context")
	}
	if captured.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, captured.ID)
	}
}

func TestWithUser_BearerToken_SetsUserInContext(t *testing.T) {
	user := testUser("student@example.com")
	mw := middlewareForUser(user, nil)

	var captured *domain.User
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if captured == nil || captured.ID != user.ID {
		t.Fatal("expected user from bearer token in context")
	}
}

func TestWithUser_NoToken_ContinuesUnauthenticated(t *testing.T) {
	mw := middlewareForUser(testUser("student@example.com"), nil)

	var called bool
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if auth.GetUser(r.Context()) != nil {
			t.Error("expected no user in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/leaderboard", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestWithUser_InvalidToken_ClearsCookieAndContinues(t *testing.T) {
	mw := middlewareForUser(testUser("student@example.com"), nil)

	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) != nil {
			t.Error("expected no user in context for invalid token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/documents", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

// =============================================================================
// RequireUser Tests
// =============================================================================

func TestRequireUser_Unauthenticated_Returns401JSON(t *testing.T) {
	mw := middlewareForUser(testUser("student@example.com"), nil)

	handler := mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for unauthenticated request")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "unauthorized") {
		t.Errorf("expected unauthorized error code in body, got %s", rec.Body.String())
	}
}

func TestRequireUser_Authenticated_Continues(t *testing.T) {
	user := testUser("student@example.com")
	mw := middlewareForUser(user, nil)

	handler := mw.WithUser(mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// =============================================================================
// RequireAdmin Tests
// =============================================================================

func TestRequireAdmin_NonAdmin_Returns403(t *testing.T) {
	user := testUser("student@example.com")
	mw := middlewareForUser(user, []string{"admin@example.com"})

	handler := mw.WithUser(mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for non-admin")
	})))

	req := httptest.NewRequest("GET", "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAdmin_Admin_Continues(t *testing.T) {
	user := testUser("admin@example.com")
	mw := middlewareForUser(user, []string{"admin@example.com"})

	handler := mw.WithUser(mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAdmin_AllowlistIsCaseInsensitive(t *testing.T) {
	user := testUser("Admin@Example.Com")
	mw := middlewareForUser(user, []string{"admin@example.com"})

	handler := mw.WithUser(mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for case-insensitive allowlist match, got %d", rec.Code)
	}
}

func TestRequireAdmin_Unauthenticated_Returns401(t *testing.T) {
	mw := middlewareForUser(testUser("admin@example.com"), []string{"admin@example.com"})

	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a user")
	}))

	req := httptest.NewRequest("GET", "/api/admin/overview", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// =============================================================================
// Cookie Helper Tests
// =============================================================================

func TestSetSessionCookie_Attributes(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "token-value", true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}

	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Errorf("expected cookie name %s, got %s", SessionCookieName, c.Name)
	}
	if c.Value != "token-value" {
		t.Errorf("unexpected cookie value %s", c.Value)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if !c.Secure {
		t.Error("expected Secure cookie when isSecure is true")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Error("expected SameSite=Lax")
	}
	if c.MaxAge != SessionCookieMaxAge {
		t.Errorf("expected MaxAge %d, got %d", SessionCookieMaxAge, c.MaxAge)
	}
}

func TestClearSessionCookie_Expires(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("expected negative MaxAge, got %d", cookies[0].MaxAge)
	}
}

// =============================================================================
// Stack Tests
// =============================================================================

func TestStack_OrdersOutsideIn(t *testing.T) {
	var order []string

	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Stack(tag("first"), tag("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "handler"}
	for i, name := range want {
		if i >= len(order) || order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}
