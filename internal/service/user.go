// Package service contains the business logic layer.
//
// This file implements account and session management: registration, login,
// logout, and session validation.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 keeps hashing around 250ms on modern hardware, which is slow
	// enough for attackers and fast enough for login flows.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy; hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength caps input before bcrypt's own 72-byte limit.
	MaxPasswordLength = 72
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for account operations.
type UserService interface {
	// Register creates a new account on the free tier.
	// Returns domain.ECONFLICT if the email already exists.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by ID.
	// Returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session token and returns its user.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// ChangePassword verifies the current password, replaces it, and
	// invalidates all existing sessions.
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error

	// DeleteExpiredSessions removes expired sessions. Called periodically.
	DeleteExpiredSessions(ctx context.Context) error

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error

	// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
	// Returns domain.ENOTFOUND if no user has that customer ID.
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error)
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		logger:  logger,
	}
}

// toDomainUser converts a repository row to the domain representation.
// This is the single place repository null types are unwrapped; call sites
// never see sql.Null* fields.
func toDomainUser(u repository.User) *domain.User {
	return &domain.User{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		Name:             domain.NullStringValue(u.Name),
		Tier:             domain.Tier(u.Tier),
		TierExpiry:       domain.NullTimeValue(u.TierExpiry),
		StreakCount:      u.StreakCount,
		LastActiveDate:   domain.NullTimeValue(u.LastActiveDate),
		StripeCustomerID: domain.NullStringValue(u.StripeCustomerID),
		SubscriptionID:   domain.NullStringValue(u.SubscriptionID),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// Register creates a new account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError(op, "email", "A valid email address is required.")
	}
	if len(params.Password) < MinPasswordLength {
		return nil, domain.NewValidationError(op, "password", "Password must be at least 8 characters.")
	}
	if len(params.Password) > MaxPasswordLength {
		return nil, domain.NewValidationError(op, "password", "Password is too long.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	user, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: string(hash),
		Name:         domain.ToNullString(strings.TrimSpace(params.Name)),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.Conflict(op, "An account with this email already exists.")
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return toDomainUser(user), nil
}

// Login authenticates a user and creates a session.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so response timing doesn't reveal
			// whether the email exists.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$12$000000000000000000000000000000000000000000000000000000"),
				[]byte(password),
			)
			return nil, domain.Unauthorized(op, "Invalid email or password.")
		}
		return nil, domain.Internal(err, op, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password.")
	}

	token, tokenHash, err := newSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(SessionDuration),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &domain.LoginResult{User: toDomainUser(user), Token: token}, nil
}

// Logout invalidates a session.
func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "user.logout"

	if err := s.queries.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return domain.Internal(err, op, "failed to delete session")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}
	return toDomainUser(user), nil
}

// GetBySessionToken validates a session token and returns its user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	session, err := s.queries.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid session.")
		}
		return nil, domain.Internal(err, op, "failed to load session")
	}

	if time.Now().After(session.ExpiresAt) {
		// Best-effort cleanup of the expired row.
		_ = s.queries.DeleteSessionByTokenHash(ctx, session.TokenHash)
		return nil, domain.Unauthorized(op, "Session expired.")
	}

	user, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load session user")
	}
	return toDomainUser(user), nil
}

// ChangePassword verifies and replaces the user's password.
func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	const op = "user.change_password"

	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.Unauthorized(op, "Current password is incorrect.")
	}
	if len(newPassword) < MinPasswordLength {
		return domain.NewValidationError(op, "password", "Password must be at least 8 characters.")
	}
	if len(newPassword) > MaxPasswordLength {
		return domain.NewValidationError(op, "password", "Password is too long.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "failed to hash password")
	}

	if err := s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           userID,
		PasswordHash: string(hash),
	}); err != nil {
		return domain.Internal(err, op, "failed to update password")
	}

	// Invalidate every existing session after a password change.
	if err := s.queries.DeleteSessionsByUserID(ctx, userID); err != nil {
		s.logger.Error("failed to invalidate sessions after password change",
			"user_id", userID, "error", err)
	}

	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "user.delete_expired_sessions"

	count, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to delete expired sessions")
	}
	if count > 0 {
		s.logger.Info("deleted expired sessions", "count", count)
	}
	return nil
}

// UpdateStripeCustomer saves the Stripe customer ID.
func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	const op = "user.update_stripe_customer"

	err := s.queries.UpdateUserStripeCustomer(ctx, repository.UpdateUserStripeCustomerParams{
		ID:               userID,
		StripeCustomerID: domain.ToNullString(stripeCustomerID),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to save stripe customer")
	}
	return nil
}

// GetByStripeCustomerID retrieves a user by Stripe customer ID.
func (s *userService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	const op = "user.get_by_stripe_customer"

	user, err := s.queries.GetUserByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", stripeCustomerID)
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}
	return toDomainUser(user), nil
}

// =============================================================================
// Token helpers
// =============================================================================

// newSessionToken generates a raw token and its storage hash.
func newSessionToken() (token, tokenHash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

// hashToken returns the SHA-256 hex digest stored in place of raw tokens.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
