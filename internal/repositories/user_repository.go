package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"authguard/internal/authz"
	"authguard/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// unique_violation
const pqUniqueViolation = "23505"

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	// UpdateVerification stores the outstanding code (nil clears it) and the
	// verified flag in one write.
	UpdateVerification(ctx context.Context, email string, code *string, verified bool) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, email, password_hash, role, verification_code, is_verified, created_at, verified_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		role       string
		code       sql.NullString
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &code, &u.IsVerified, &u.CreatedAt, &verifiedAt); err != nil {
		return nil, err
	}
	r, err := authz.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = r
	if code.Valid && code.String != "" {
		s := code.String
		u.VerificationCode = &s
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		u.VerifiedAt = &t
	}
	return u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("userRepository.FindByEmail: %w", err)
	}
	return u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("userRepository.FindByID: %w", err)
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (id, email, password_hash, role, verification_code, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var code sql.NullString
	if user.VerificationCode != nil {
		code = sql.NullString{String: *user.VerificationCode, Valid: true}
	}
	err := r.DB.QueryRowContext(ctx, q,
		user.ID, user.Email, user.PasswordHash, string(user.Role), code, user.IsVerified,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("userRepository.Create: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE email = $2`, passwordHash, email)
	if err != nil {
		return fmt.Errorf("userRepository.UpdatePassword: %w", err)
	}
	return expectOneRow(res)
}

func (r *userRepository) UpdateVerification(ctx context.Context, email string, code *string, verified bool) error {
	const q = `
		UPDATE users
		SET verification_code = $1,
		    is_verified = $2,
		    verified_at = CASE WHEN $2 AND verified_at IS NULL THEN NOW() ELSE verified_at END
		WHERE email = $3
	`
	var c sql.NullString
	if code != nil {
		c = sql.NullString{String: *code, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, q, c, verified, email)
	if err != nil {
		return fmt.Errorf("userRepository.UpdateVerification: %w", err)
	}
	return expectOneRow(res)
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("userRepository.List: %w", err)
	}
	defer rows.Close()

	res := make([]*models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("userRepository.List: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
