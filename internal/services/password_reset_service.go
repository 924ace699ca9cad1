package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"authguard/internal/models"
	"authguard/internal/repositories"
	"authguard/internal/utils"
)

// ResetTokenTTL bounds how long a reset token can be redeemed.
const ResetTokenTTL = time.Hour

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	users         repositories.UserRepository
	resets        repositories.PasswordResetRepository
	notifier      Notifier
	auth          AuthService
	logger        *slog.Logger
	now           func() time.Time
	newToken      func() (string, error)
	notifyTimeout time.Duration
}

type PasswordResetOption func(*passwordResetService)

func WithResetClock(now func() time.Time) PasswordResetOption {
	return func(s *passwordResetService) { s.now = now }
}

func WithResetTokenGenerator(gen func() (string, error)) PasswordResetOption {
	return func(s *passwordResetService) { s.newToken = gen }
}

func WithResetNotifyTimeout(d time.Duration) PasswordResetOption {
	return func(s *passwordResetService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewPasswordResetService(users repositories.UserRepository, resets repositories.PasswordResetRepository, notifier Notifier, auth AuthService, logger *slog.Logger, opts ...PasswordResetOption) PasswordResetService {
	s := &passwordResetService{
		users:         users,
		resets:        resets,
		notifier:      notifier,
		auth:          auth,
		logger:        logger,
		now:           time.Now,
		newToken:      func() (string, error) { return utils.NewResetToken(32) },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset mails a reset token. Unknown emails succeed silently so the
// endpoint does not reveal which accounts exist.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "password reset: unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := s.newToken()
	if err != nil {
		return err
	}
	pr := &models.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: s.now().Add(ResetTokenTTL),
	}
	if err := s.resets.Create(ctx, pr); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	body, err := render(resetTmpl, struct {
		Email     string
		Token     string
		ExpiresAt time.Time
	}{user.Email, token, pr.ExpiresAt})
	if err != nil {
		s.logger.ErrorContext(ctx, "render reset email", "email", user.Email, "error", err)
		return nil
	}
	deliver(ctx, s.notifier, s.logger, s.notifyTimeout, user.Email, subjectReset, body)
	return nil
}

// ResetPassword redeems a token once and replaces the password hash.
func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	pr, err := s.resets.GetByTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, repositories.ErrResetNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}
	if pr.UsedAt != nil || !s.now().Before(pr.ExpiresAt) {
		return ErrInvalidResetToken
	}

	user, err := s.users.FindByID(ctx, pr.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	// consume first so a replayed token cannot race a second password write
	if err := s.resets.MarkUsed(ctx, pr.ID); err != nil {
		if errors.Is(err, repositories.ErrResetNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.Email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}
