package secrettoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	secretBytes = 32

	DefaultPasswordResetExpiry     = 1 * time.Hour
	DefaultEmailConfirmationExpiry = 24 * time.Hour
)

// Store issues and redeems single-use secret tokens for password resets and
// email confirmations. Issuing a token supersedes any live token of the same
// kind for the account, and redeeming consumes the token atomically so a
// secret can never be honored twice.
type Store struct {
	repo Repository

	passwordResetExpiry     time.Duration
	emailConfirmationExpiry time.Duration
	now                     func() time.Time
}

// StoreOption configures the store
type StoreOption func(*Store)

// WithPasswordResetExpiry sets the password reset token lifetime
func WithPasswordResetExpiry(d time.Duration) StoreOption {
	return func(s *Store) {
		s.passwordResetExpiry = d
	}
}

// WithEmailConfirmationExpiry sets the email confirmation token lifetime
func WithEmailConfirmationExpiry(d time.Duration) StoreOption {
	return func(s *Store) {
		s.emailConfirmationExpiry = d
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new secret token store
func NewStore(repo Repository, opts ...StoreOption) *Store {
	store := &Store{
		repo:                    repo,
		passwordResetExpiry:     DefaultPasswordResetExpiry,
		emailConfirmationExpiry: DefaultEmailConfirmationExpiry,
		now:                     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) expiry(kind Kind) time.Duration {
	if kind == KindEmailConfirmation {
		return s.emailConfirmationExpiry
	}
	return s.passwordResetExpiry
}

// Digest returns the hex SHA-256 digest stored in place of a plaintext secret
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Issue generates a fresh secret for the account, superseding any live token
// of the same kind, and returns the plaintext. The plaintext is never stored.
func (s *Store) Issue(ctx context.Context, accountID uuid.UUID, kind Kind) (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("Failed to generate token secret", "err", err)
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.repo.DeleteByAccountAndKind(ctx, accountID, kind); err != nil {
		slog.Error("Failed to supersede prior tokens", "kind", kind, "err", err)
		return "", err
	}

	token := Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Digest:    Digest(secret),
		ExpiresAt: s.now().Add(s.expiry(kind)),
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		slog.Error("Failed to store token", "kind", kind, "err", err)
		return "", err
	}

	return secret, nil
}

// Redeem consumes the token matching the secret and returns the account it
// was issued for. Unknown, expired and already-consumed secrets all produce
// ErrTokenInvalid.
func (s *Store) Redeem(ctx context.Context, secret string, kind Kind) (uuid.UUID, error) {
	token, err := s.repo.GetByDigest(ctx, Digest(secret), kind)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return uuid.Nil, ErrTokenInvalid
		}
		slog.Error("Failed to look up token", "kind", kind, "err", err)
		return uuid.Nil, err
	}

	if s.now().After(token.ExpiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	if err := s.repo.Consume(ctx, token.ID); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return uuid.Nil, ErrTokenInvalid
		}
		slog.Error("Failed to consume token", "kind", kind, "err", err)
		return uuid.Nil, err
	}

	return token.AccountID, nil
}
