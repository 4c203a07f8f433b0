package password

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/secrettoken"
)

// Service manages the password lifecycle: first-time set for social-only
// accounts, authenticated change, and the forgot/reset flow backed by
// single-use secret tokens.
type Service struct {
	repo          account.Repository
	hasher        Hasher
	policyChecker PolicyChecker
	tokens        *secrettoken.Store
	notifications *notification.Manager
	resetURL      string
}

// Option configures the service
type Option func(*Service)

// WithPolicyChecker overrides the password policy checker
func WithPolicyChecker(pc PolicyChecker) Option {
	return func(s *Service) {
		s.policyChecker = pc
	}
}

// WithHasher overrides the password hasher
func WithHasher(h Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithResetURL sets the base URL embedded in password reset emails
func WithResetURL(u string) Option {
	return func(s *Service) {
		s.resetURL = u
	}
}

// NewService creates a password service
func NewService(repo account.Repository, tokens *secrettoken.Store, notifications *notification.Manager, opts ...Option) *Service {
	service := &Service{
		repo:          repo,
		hasher:        NewBcryptHasher(0),
		policyChecker: NewDefaultPolicyChecker(DefaultPolicy()),
		tokens:        tokens,
		notifications: notifications,
		resetURL:      "/password/reset",
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Status reports whether the account has a password set
func (s *Service) Status(ctx context.Context, accountID uuid.UUID) (bool, error) {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acct.HasPassword(), nil
}

// Set gives a social-only account its first password. Accounts that already
// have one get ErrPasswordAlreadySet and must use Change.
func (s *Service) Set(ctx context.Context, accountID uuid.UUID, newPassword string) error {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.HasPassword() {
		return ErrPasswordAlreadySet
	}

	return s.update(ctx, accountID, newPassword)
}

// Change replaces the account's password after verifying the current one
func (s *Service) Change(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.HasPassword() {
		return ErrNoPassword
	}
	if !s.hasher.Verify(acct.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}

	return s.update(ctx, accountID, newPassword)
}

// Forgot starts the reset flow for the account with the given email. It
// reports success whether or not the email is registered so callers cannot
// probe which addresses exist.
func (s *Service) Forgot(ctx context.Context, email, clientIP string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			slog.Info("Password reset requested for unknown email", "client_ip", clientIP)
			return nil
		}
		return err
	}

	secret, err := s.tokens.Issue(ctx, acct.ID, secrettoken.KindPasswordReset)
	if err != nil {
		return err
	}

	err = s.notifications.Send(notification.NoticePasswordReset, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"link": s.resetURL + "?token=" + url.QueryEscape(secret)},
	})
	if err != nil {
		slog.Error("Failed to send password reset email", "err", err)
		return err
	}

	slog.Info("Password reset email sent", "username", acct.Username, "client_ip", clientIP)
	return nil
}

// Reset consumes a reset token and sets the new password. The new password
// is validated and hashed first so a rejected password leaves the token
// unconsumed and the user can retry with the same link.
func (s *Service) Reset(ctx context.Context, secret, newPassword string) error {
	if err := s.policyChecker.CheckPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		slog.Error("Failed to hash password", "err", err)
		return err
	}

	accountID, err := s.tokens.Redeem(ctx, secret, secrettoken.KindPasswordReset)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(ctx, accountID, hash)
}

func (s *Service) update(ctx context.Context, accountID uuid.UUID, newPassword string) error {
	if err := s.policyChecker.CheckPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		slog.Error("Failed to hash password", "err", err)
		return err
	}

	return s.repo.UpdatePassword(ctx, accountID, hash)
}
