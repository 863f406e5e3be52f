package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dossier-service/internal/auth"
	"github.com/spec-kit/dossier-service/internal/config"
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// AuthService handles account registration and token issuance.
type AuthService struct {
	cfg    config.Config
	tokens *auth.TokenManager
	users  repository.UserRepository
	staff  repository.StaffRepository
}

// AuthDependencies bundles repositories for the auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	StaffRepo repository.StaffRepository
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		cfg:    cfg,
		tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		users:  deps.UserRepo,
		staff:  deps.StaffRepo,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// AuthResult carries an issued token.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
}

// RegisterUser creates a client account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, phone, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || len(password) < 8 {
		return nil, errorutil.NewValidationError("name, email and a password of 8+ characters required", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errorutil.NewConflict("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, errorutil.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(phone),
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errorutil.MapError(err)
	}
	return user, nil
}

// LoginUser authenticates a client and issues a token.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, errorutil.MapError(err)
	}
	if user.Status != domain.UserStatusActive || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, nil
}

// LoginStaff authenticates a staff member and issues a token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*AuthResult, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, errorutil.MapError(err)
	}
	if !staff.Active || !auth.CheckPassword(staff.PasswordHash, password) {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	role := staff.Role
	token, expiresAt, err := s.tokens.GenerateToken(staff.ID, domain.SubjectTypeStaff, &role)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, nil
}
