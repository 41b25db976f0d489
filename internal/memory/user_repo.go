package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tathang/foodcourt/internal/auth"
)

// Users exposes the store as an auth.UserRepository.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Tokens exposes the store as an auth.TokenStore.
func (s *Store) Tokens() *TokenStore { return &TokenStore{s: s} }

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return auth.ErrUserExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*auth.User, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email })
}

func (r *UserRepo) find(match func(*auth.User) bool) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type TokenStore struct{ s *Store }

func (t *TokenStore) Save(ctx context.Context, userID, code string, ttl time.Duration) error {
	_ = ctx
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.otps[userID] = otpEntry{code: code, expires: time.Now().Add(ttl)}
	return nil
}

func (t *TokenStore) Get(ctx context.Context, userID string) (string, error) {
	_ = ctx
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	e, ok := t.s.otps[userID]
	if !ok || time.Now().After(e.expires) {
		return "", nil
	}
	return e.code, nil
}

func (t *TokenStore) Delete(ctx context.Context, userID string) error {
	_ = ctx
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	delete(t.s.otps, userID)
	return nil
}
