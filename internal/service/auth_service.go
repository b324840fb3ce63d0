package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and user administration.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new account. Every self-registered account starts as
// a reporter; elevation is an admin operation.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", time.Time{}, errorutil.NewMissingRequiredField("email")
	}
	if len(password) < 8 {
		return nil, "", time.Time{}, errorutil.NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errorutil.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         domain.RoleReporter,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRegistered,
			ActorID:   user.ID,
			Timestamp: time.Now(),
			Payload: events.UserRegisteredPayload{
				Email:    user.Email,
				FullName: user.DisplayName(),
			},
		})
	}
	return user, token, expiresAt, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !user.Active {
		return nil, "", time.Time{}, errorutil.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// ListUsers returns accounts for administration. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.User, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageUsers) {
		return nil, errorutil.NewForbidden("not allowed to manage users")
	}
	return s.users.List(ctx, limit, offset)
}

// SetRole changes a user's role and department. Admin only.
func (s *AuthService) SetRole(ctx context.Context, actor *domain.User, userID string, role domain.UserRole, departmentID *string) (*domain.User, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageUsers) {
		return nil, errorutil.NewForbidden("not allowed to manage users")
	}
	switch role {
	case domain.RoleReporter, domain.RoleStaff, domain.RoleManager, domain.RoleAdmin:
	default:
		return nil, errorutil.NewValidationError("invalid role", map[string]any{"role": role})
	}

	if err := s.users.UpdateRole(ctx, userID, role, departmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("user", map[string]any{"id": userID})
		}
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
