package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"authguard/internal/models"
)

var ErrResetNotFound = errors.New("password reset not found")

type PasswordResetRepository interface {
	Create(ctx context.Context, pr *models.PasswordReset) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
	// MarkUsed fails with ErrResetNotFound when the grant is unknown or
	// already consumed.
	MarkUsed(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	DB *sql.DB
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{DB: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, pr *models.PasswordReset) error {
	const q = `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	if err := r.DB.QueryRowContext(ctx, q, pr.ID, pr.UserID, pr.TokenHash, pr.ExpiresAt).Scan(&pr.CreatedAt); err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	const q = `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = $1`
	pr := &models.PasswordReset{}
	var usedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, tokenHash).
		Scan(&pr.ID, &pr.UserID, &pr.TokenHash, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("select password reset: %w", err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		pr.UsedAt = &t
	}
	return pr, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	const q = `UPDATE password_resets SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`
	res, err := r.DB.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	if n == 0 {
		return ErrResetNotFound
	}
	return nil
}

type memoryPasswordResetRepository struct {
	mu     sync.Mutex
	byHash map[string]*models.PasswordReset
	now    func() time.Time
}

func NewMemoryPasswordResetRepository() PasswordResetRepository {
	return &memoryPasswordResetRepository{byHash: make(map[string]*models.PasswordReset), now: time.Now}
}

func (r *memoryPasswordResetRepository) Create(_ context.Context, pr *models.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr.CreatedAt = r.now()
	cp := *pr
	r.byHash[pr.TokenHash] = &cp
	return nil
}

func (r *memoryPasswordResetRepository) GetByTokenHash(_ context.Context, tokenHash string) (*models.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.byHash[tokenHash]
	if !ok {
		return nil, ErrResetNotFound
	}
	cp := *pr
	if pr.UsedAt != nil {
		t := *pr.UsedAt
		cp.UsedAt = &t
	}
	return &cp, nil
}

func (r *memoryPasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pr := range r.byHash {
		if pr.ID == id && pr.UsedAt == nil {
			t := r.now()
			pr.UsedAt = &t
			return nil
		}
	}
	return ErrResetNotFound
}
