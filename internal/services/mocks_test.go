package services

import (
	"context"
	"errors"
	"sync"

	"authguard/internal/models"
	"authguard/internal/repositories"
)

type sentNotification struct {
	To, Subject, Body string
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	outcome Outcome
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, to, subject, body string) (Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{To: to, Subject: subject, Body: body})
	return n.outcome, n.err
}

func (n *recordingNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

func staticCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("no more codes")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

// failingRepo wraps a repository and fails the chosen call.
type failingRepo struct {
	repositories.UserRepository
	failUpdateVerification error
	failCreate             error
}

func (r *failingRepo) Create(ctx context.Context, user *models.User) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	return r.UserRepository.Create(ctx, user)
}

func (r *failingRepo) UpdateVerification(ctx context.Context, email string, code *string, verified bool) error {
	if r.failUpdateVerification != nil {
		return r.failUpdateVerification
	}
	return r.UserRepository.UpdateVerification(ctx, email, code, verified)
}

var _ repositories.UserRepository = (*failingRepo)(nil)

func mustFind(repo repositories.UserRepository, email string) *models.User {
	u, err := repo.FindByEmail(context.Background(), email)
	if err != nil {
		panic(err)
	}
	return u
}
