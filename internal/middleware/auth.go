// Package middleware contains HTTP middleware for the MindGrove API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/handler"
	"github.com/mindgrove-app/mindgrove/internal/service"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// SessionCookieName is the name of the cookie that stores the session token.
	SessionCookieName = "mindgrove_session"

	// SessionCookiePath ensures the cookie is sent with all requests.
	SessionCookiePath = "/"

	// SessionCookieMaxAge sets the cookie expiration.
	// This should match SessionDuration in the user service.
	SessionCookieMaxAge = 7 * 24 * 60 * 60
)

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware resolves session tokens to users.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool // Secure flag on cookies (true in production)
	adminEmails map[string]bool
}

// NewAuthMiddleware creates a new AuthMiddleware instance. adminEmails is the
// allowlist for admin-only routes.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger, isSecure bool, adminEmails []string) *AuthMiddleware {
	allowlist := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		allowlist[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
		adminEmails: allowlist,
	}
}

// WithUser attempts to load the user from the session cookie or a bearer
// token and stores it in the request context. The request continues either
// way; handlers that need a user sit behind RequireUser.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Invalid or expired session: clear the cookie and continue
			// unauthenticated.
			clearSessionCookie(w, m.isSecure)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects unauthenticated requests with 401.
// Must run after WithUser.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from users outside the admin allowlist with
// 403. Must run after RequireUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !m.adminEmails[strings.ToLower(user.Email)] {
			m.logger.Warn("admin route denied", "user_id", user.ID)
			handler.ErrorResponse(w, r, m.logger, domain.Forbidden("", "Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken extracts the session token from the cookie or, for API
// clients, the Authorization header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

// =============================================================================
// Cookie Helpers
// =============================================================================

// SetSessionCookie sets the session cookie on the response.
//
// Cookie settings:
// - HttpOnly: true - Prevents JavaScript access (XSS protection)
// - Secure: configurable - Set true in production (HTTPS only)
// - SameSite: Lax - Prevents CSRF while allowing normal navigation
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     SessionCookiePath,
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie from the client.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     SessionCookiePath,
		MaxAge:   -1, // Delete immediately
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie is the exported version for use in logout handlers.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	clearSessionCookie(w, isSecure)
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
// The first middleware in the slice is the outermost (runs first on request,
// last on response).
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
