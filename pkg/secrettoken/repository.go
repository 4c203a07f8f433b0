package secrettoken

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes what a secret token authorizes
type Kind string

const (
	KindPasswordReset     Kind = "password_reset"
	KindEmailConfirmation Kind = "email_confirmation"
)

// Token is a stored secret token. Only the SHA-256 digest of the secret is
// persisted; the plaintext exists solely in the issue response.
type Token struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Kind       Kind
	Digest     string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Repository defines the persistence contract for secret tokens
type Repository interface {
	// Create stores a new token
	Create(ctx context.Context, token Token) error

	// GetByDigest retrieves an unconsumed token by digest and kind
	GetByDigest(ctx context.Context, digest string, kind Kind) (Token, error)

	// Consume marks a token consumed if and only if it is still unconsumed.
	// Returns ErrTokenInvalid when another redeemer won the race.
	Consume(ctx context.Context, id uuid.UUID) error

	// DeleteByAccountAndKind removes all live tokens of one kind for an
	// account, superseding them
	DeleteByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind Kind) error
}
