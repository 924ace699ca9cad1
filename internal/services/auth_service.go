package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"authguard/internal/authz"
	"authguard/internal/models"
	"authguard/internal/repositories"
)

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, email, password string) (*models.User, error)
	CreateUser(ctx context.Context, email, password string, role authz.Role) (*models.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	HashPassword(password string) (string, error)
}

type authService struct {
	repo         repositories.UserRepository
	tokens       *TokenService
	verification VerificationService
	logger       *slog.Logger
	bcryptCost   int
}

func NewAuthService(repo repositories.UserRepository, tokens *TokenService, verification VerificationService, logger *slog.Logger, bcryptCost int) AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		repo:         repo,
		tokens:       tokens,
		verification: verification,
		logger:       logger,
		bcryptCost:   bcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks the password against the stored bcrypt hash and mints a
// one-hour token carrying the user's role.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "login: unknown email", "email", email)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "login: password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "login: success", "user_id", user.ID, "role", user.Role.String())

	return &LoginResult{Token: token, TokenType: "Bearer", ExpiresAt: exp, User: user.Sanitized()}, nil
}

// Register creates an unverified user and emails a verification code.
// Public registration always yields the user role. The code is stored by the
// same insert that creates the record.
func (s *authService) Register(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.create(ctx, email, password, authz.RoleUser, true)
	if err != nil {
		return nil, err
	}
	s.verification.SendCode(ctx, user.Email, *user.VerificationCode)

	return user.Sanitized(), nil
}

// CreateUser is the admin path: any valid role, no verification email.
func (s *authService) CreateUser(ctx context.Context, email, password string, role authz.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrValidation, role)
	}
	user, err := s.create(ctx, email, password, role, false)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *authService) create(ctx context.Context, email, password string, role authz.Role, withCode bool) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if withCode {
		code, err := s.verification.NewCode()
		if err != nil {
			return nil, fmt.Errorf("generate verification code: %w", err)
		}
		user.VerificationCode = &code
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", role.String())
	return user, nil
}

// ChangePassword replaces the stored hash after re-checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.Email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user.Sanitized(), nil
}

func (s *authService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}
