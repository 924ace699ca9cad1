package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"authguard/internal/models"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User // by email
	now   func() time.Time
}

// NewMemoryUserRepository builds an in-process store, used when no database
// is configured and in tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*models.User), now: time.Now}
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.VerificationCode != nil {
		c := *u.VerificationCode
		cp.VerificationCode = &c
	}
	if u.VerifiedAt != nil {
		t := *u.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clone(u), nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return clone(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	user.CreatedAt = r.now().UTC()
	r.users[user.Email] = clone(user)
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepository) UpdateVerification(_ context.Context, email string, code *string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return ErrUserNotFound
	}
	if code != nil {
		c := *code
		u.VerificationCode = &c
	} else {
		u.VerificationCode = nil
	}
	u.IsVerified = verified
	if verified && u.VerifiedAt == nil {
		t := r.now().UTC()
		u.VerifiedAt = &t
	}
	return nil
}

func (r *memoryUserRepository) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.RLock()
	all := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, clone(u))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []*models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
