package emailconfirm

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/account"
	errs "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/secrettoken"
)

// ErrNoEmail is returned by Request when the account has no email address
var ErrNoEmail = errs.New(errs.ErrCodeValidationFailed, "account has no email address")

// Service manages email confirmation: issuing confirmation tokens, mailing
// them out, and marking accounts confirmed on redemption.
type Service struct {
	repo          account.Repository
	tokens        *secrettoken.Store
	notifications *notification.Manager
	confirmURL    string
}

// Option configures the service
type Option func(*Service)

// WithConfirmURL sets the base URL embedded in confirmation emails
func WithConfirmURL(u string) Option {
	return func(s *Service) {
		s.confirmURL = u
	}
}

// NewService creates an email confirmation service
func NewService(repo account.Repository, tokens *secrettoken.Store, notifications *notification.Manager, opts ...Option) *Service {
	service := &Service{
		repo:          repo,
		tokens:        tokens,
		notifications: notifications,
		confirmURL:    "/auth/confirm",
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Status reports whether the account's email is confirmed
func (s *Service) Status(ctx context.Context, accountID uuid.UUID) (bool, error) {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acct.EmailConfirmed, nil
}

// Request issues a confirmation token and mails it. Re-requesting is
// idempotent: the new token supersedes any prior unconsumed one.
func (s *Service) Request(ctx context.Context, accountID uuid.UUID) error {
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Email == "" {
		return ErrNoEmail
	}

	secret, err := s.tokens.Issue(ctx, acct.ID, secrettoken.KindEmailConfirmation)
	if err != nil {
		return err
	}

	err = s.notifications.Send(notification.NoticeEmailConfirmation, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"link": s.confirmURL + "/" + url.PathEscape(secret)},
	})
	if err != nil {
		slog.Error("Failed to send confirmation email", "err", err)
		return err
	}

	return nil
}

// Confirm consumes a confirmation token and marks the account confirmed
func (s *Service) Confirm(ctx context.Context, secret string) error {
	accountID, err := s.tokens.Redeem(ctx, secret, secrettoken.KindEmailConfirmation)
	if err != nil {
		return err
	}

	if err := s.repo.MarkEmailConfirmed(ctx, accountID); err != nil {
		slog.Error("Failed to mark email confirmed", "err", err)
		return err
	}

	slog.Info("Email confirmed", "account_id", accountID)
	return nil
}
