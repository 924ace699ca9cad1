package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"authguard/internal/models"
	"authguard/internal/repositories"
	"authguard/internal/utils"
)

const defaultNotifyTimeout = 10 * time.Second

// VerificationService runs the email-confirmation lifecycle: a one-time
// 6-digit code is issued at registration and cleared on the first match.
type VerificationService interface {
	NewCode() (string, error)
	IssueCode(ctx context.Context, user *models.User) (string, error)
	SendCode(ctx context.Context, email, code string)
	Resend(ctx context.Context, email string) error
	ConfirmCode(ctx context.Context, email, code string) error
}

type verificationService struct {
	repo          repositories.UserRepository
	notifier      Notifier
	logger        *slog.Logger
	newCode       func() (string, error)
	notifyTimeout time.Duration
}

type VerificationOption func(*verificationService)

func WithCodeGenerator(gen func() (string, error)) VerificationOption {
	return func(s *verificationService) { s.newCode = gen }
}

func WithNotifyTimeout(d time.Duration) VerificationOption {
	return func(s *verificationService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewVerificationService(repo repositories.UserRepository, notifier Notifier, logger *slog.Logger, opts ...VerificationOption) VerificationService {
	s := &verificationService{
		repo:          repo,
		notifier:      notifier,
		logger:        logger,
		newCode:       utils.NewVerificationCode,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCode draws a code without storing it.
func (s *verificationService) NewCode() (string, error) {
	return s.newCode()
}

// IssueCode stores a fresh code for the user and resets is_verified to
// false. Verified users are refused, the flag never goes back.
func (s *verificationService) IssueCode(ctx context.Context, user *models.User) (string, error) {
	if user.IsVerified {
		return "", ErrAlreadyVerified
	}
	code, err := s.NewCode()
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateVerification(ctx, user.Email, &code, false); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store verification code: %w", err)
	}
	return code, nil
}

func (s *verificationService) SendCode(ctx context.Context, email, code string) {
	body, err := render(verifyEmailTmpl, struct{ Email, Code string }{email, code})
	if err != nil {
		s.logger.ErrorContext(ctx, "render verification email", "email", email, "error", err)
		return
	}
	s.dispatch(ctx, email, subjectVerifyEmail, body)
}

func (s *verificationService) Resend(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	code, err := s.IssueCode(ctx, user)
	if err != nil {
		return err
	}
	s.SendCode(ctx, user.Email, code)
	return nil
}

// ConfirmCode compares the submitted code with the outstanding one. The
// read-compare-write is not atomic: two concurrent confirmations can both
// succeed, which only repeats an idempotent transition.
func (s *verificationService) ConfirmCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.VerificationCode == nil || *user.VerificationCode == "" || *user.VerificationCode != code {
		return ErrInvalidCode
	}
	if err := s.repo.UpdateVerification(ctx, email, nil, true); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID, "email", email)

	body, err := render(verifiedTmpl, struct{ Email string }{email})
	if err != nil {
		s.logger.ErrorContext(ctx, "render verified email", "email", email, "error", err)
		return nil
	}
	s.dispatch(ctx, email, subjectVerified, body)
	return nil
}

func (s *verificationService) dispatch(ctx context.Context, to, subject, body string) {
	deliver(ctx, s.notifier, s.logger, s.notifyTimeout, to, subject, body)
}
