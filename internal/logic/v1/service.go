package v1

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/hoangnd/tokengate/internal/core/domain"
	"github.com/hoangnd/tokengate/middleware"
)

// tokenBytes is the entropy of an issued token: 32 random bytes, hex encoded.
const tokenBytes = 32

// AuthService implements authentication business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
}

// NewAuthService creates a new AuthService with the given repository dependencies.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
	}
}

// Register handles user registration business logic.
// Duplicate emails surface as a *ValidationError; the caller maps that to 422.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", req.Email),
	))
	defer span.End()

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register %q: %w", req.Email,
			NewFieldError("email", "The email has already been taken."))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.users.Create(ctx, req.Name, req.Email, string(passwordHash))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	user := &domain.User{
		ID:    userID,
		Name:  req.Name,
		Email: req.Email,
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return user, nil
}

// Login verifies credentials and issues a fresh bearer token. All prior
// tokens of the user are revoked in the same transaction (single session).
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate %q: %w", req.Email, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate %q: %w", req.Email, ErrInvalidCredentials)
	}

	token, err := newToken()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := s.sessions.Replace(ctx, row.ID, token); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("replace session token: %w", err)
	}

	response := &domain.AuthResponse{
		Token: token,
		User: domain.User{
			ID:    row.ID,
			Name:  row.Name,
			Email: row.Email,
		},
	}

	span.SetAttributes(
		attribute.Int("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return response, nil
}

// GetUserByToken resolves a bearer token to its user. Pure lookup, no side
// effects; tokens stay valid until explicitly revoked.
func (s *AuthService) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.get_user_by_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup token: %w", ErrTokenMissing)
	}

	row, err := s.sessions.GetUserByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query token: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup token: %w", ErrTokenInvalid)
	}

	user := &domain.User{
		ID:    row.UserID,
		Name:  row.Name,
		Email: row.Email,
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Bool("session.valid", true),
	)

	return user, nil
}

// Logout revokes the given token. A token that is already gone (revoked by a
// concurrent request between gate check and delete) reports ErrTokenInvalid.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		return fmt.Errorf("logout: %w", ErrTokenMissing)
	}

	deleted, err := s.sessions.DeleteByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete token: %w", err)
	}
	if !deleted {
		span.SetAttributes(attribute.Bool("logout.success", false))
		return fmt.Errorf("logout: %w", ErrTokenInvalid)
	}

	span.SetAttributes(attribute.Bool("logout.success", true))
	span.AddEvent("user.logged_out")

	return nil
}

// newToken returns an opaque bearer token with 256 bits of entropy from the
// system CSPRNG.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
