package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// ErrOTPInvalid covers both a wrong code and an expired one; the caller gets
// a conflict either way and cannot probe which it was.
var ErrOTPInvalid = errors.New("auth: otp invalid or expired")

// TokenStore keeps at most one reset code per user. Saving again overwrites
// the previous code and restarts the TTL.
type TokenStore interface {
	Save(ctx context.Context, userID, code string, ttl time.Duration) error
	// Get returns "" once the code has expired or was never issued.
	Get(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

type Service struct {
	users  UserRepository
	tokens TokenStore
	mail   Sender
	log    *zap.Logger
	opts   Options
}

func NewService(users UserRepository, tokens TokenStore, mail Sender, log *zap.Logger, opts Options) *Service {
	return &Service{users: users, tokens: tokens, mail: mail, log: log, opts: opts}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:     username,
		Email:        email,
		Role:         RoleCustomer,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	u, err := s.users.ByUsername(ctx, username)
	if err != nil {
		return "", nil, ErrBadLogin
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrBadLogin
	}
	token, err := IssueToken(s.opts.JWTSecret, u.ID, u.Role, s.opts.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// RequestPasswordReset issues a fresh 6-digit code for the account and mails
// it. A repeat request replaces the previous code.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := otpCode()
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, u.ID, code, s.opts.OTPTTL); err != nil {
		return err
	}
	if err := s.mail.Send(u.Email, "Password reset code", "Your reset code is: "+code); err != nil {
		// fire-and-forget: delivery failures are logged, never retried here
		s.log.Error("otp mail delivery failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	stored, err := s.tokens.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	if stored == "" || stored != code {
		return ErrOTPInvalid
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	// one-shot token: consumed on success
	if err := s.tokens.Delete(ctx, u.ID); err != nil {
		s.log.Warn("otp token delete failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
