// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the authentication endpoints.
//
// Routes:
//   - POST /api/auth/register -> Register
//   - POST /api/auth/login    -> Login
//   - POST /api/auth/logout   -> Logout
//   - GET  /api/me            -> Me            (requires auth)
//   - GET  /api/me/usage      -> Usage         (requires auth)
//   - POST /api/me/password   -> ChangePassword (requires auth)
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/service"
)

// =============================================================================
// Session Cookie Configuration
// =============================================================================

// Session cookie constants - these match the values in middleware/auth.go
// (duplicated to avoid an import cycle; middleware imports this package for
// error responses).
const (
	// sessionCookieName is the name of the cookie that stores the session token.
	sessionCookieName = "mindgrove_session"

	// sessionCookiePath ensures the cookie is sent with all requests.
	sessionCookiePath = "/"

	// sessionCookieMaxAge sets the cookie expiration (7 days).
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// setSessionCookie sets the session cookie on the response.
func setSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     sessionCookiePath,
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie from the client.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestSessionToken extracts the session token from the cookie or the
// Authorization header.
func requestSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// =============================================================================
// Handler
// =============================================================================

// AuthHandler handles authentication and account endpoints.
type AuthHandler struct {
	userService  service.UserService
	streaks      service.StreakService
	entitlements service.EntitlementService
	logger       *slog.Logger
	isSecure     bool
}

// NewAuthHandler creates a new AuthHandler. isSecure enables the Secure
// cookie flag and should be true in production.
func NewAuthHandler(
	userService service.UserService,
	streaks service.StreakService,
	entitlements service.EntitlementService,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		streaks:      streaks,
		entitlements: entitlements,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// =============================================================================
// Response Types
// =============================================================================

// userResponse is the public JSON shape of an account. The password hash
// and Stripe identifiers never leave the server.
type userResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	Tier           domain.Tier `json:"tier"`
	TierExpiry     *time.Time `json:"tier_expiry,omitempty"`
	StreakCount    int64      `json:"streak_count"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		Tier:           u.EffectiveTier(time.Now()),
		TierExpiry:     u.TierExpiry,
		StreakCount:    u.StreakCount,
		LastActiveDate: u.LastActiveDate,
		CreatedAt:      u.CreatedAt,
	}
}

// sessionResponse is returned by login and register. The token is also set
// as an HttpOnly cookie; the body copy is for non-browser clients.
type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// =============================================================================
// POST /api/auth/register
// =============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a new account on the free tier and opens a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if _, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	// Log the new account in immediately so the client gets a session.
	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.recordActivity(r, result.User)
	setSessionCookie(w, result.Token, h.isSecure)
	respondJSON(w, http.StatusCreated, sessionResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}

// =============================================================================
// POST /api/auth/login
// =============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and opens a session. Logging in counts as
// activity for the daily streak.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.recordActivity(r, result.User)
	setSessionCookie(w, result.Token, h.isSecure)
	respondJSON(w, http.StatusOK, sessionResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}

// recordActivity applies the daily streak transition and folds the fresh
// count into the user for the response. Best-effort: a streak failure
// never blocks login.
func (h *AuthHandler) recordActivity(r *http.Request, user *domain.User) {
	result, err := h.streaks.RecordActivity(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("streak update on login failed", "user_id", user.ID, "error", err)
		return
	}
	user.StreakCount = result.StreakCount
	user.LastActiveDate = &result.LastActiveDate
}

// =============================================================================
// POST /api/auth/logout
// =============================================================================

// Logout invalidates the current session. Idempotent; always clears the
// cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := requestSessionToken(r); token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout failed", "error", err)
		}
	}
	clearSessionCookie(w, h.isSecure)
	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// GET /api/me
// =============================================================================

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(user)})
}

// =============================================================================
// GET /api/me/usage
// =============================================================================

// usageResponse reports current usage against tier limits. Limits for
// unlimited quotas are reported as null.
type usageResponse struct {
	DocumentsUsed  int64  `json:"documents_used"`
	DocumentsLimit *int64 `json:"documents_limit"`
	AIQueriesUsed  int64  `json:"ai_queries_used"`
	AIQueriesLimit *int64 `json:"ai_queries_limit"`
}

// Usage returns the authenticated user's quota usage.
func (h *AuthHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	usage, err := h.entitlements.Usage(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := usageResponse{
		DocumentsUsed: usage.DocumentsUsed,
		AIQueriesUsed: usage.AIQueriesUsed,
	}
	if !usage.DocumentsUnlimited() {
		resp.DocumentsLimit = &usage.DocumentsLimit
	}
	if !usage.AIQueriesUnlimited() {
		resp.AIQueriesLimit = &usage.AIQueriesLimit
	}
	respondJSON(w, http.StatusOK, resp)
}

// =============================================================================
// POST /api/me/password
// =============================================================================

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the user's password. All sessions are
// invalidated, including this one, so the cookie is cleared.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	clearSessionCookie(w, h.isSecure)
	respondJSON(w, http.StatusNoContent, nil)
}
