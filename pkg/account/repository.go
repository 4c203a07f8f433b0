package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for accounts and the global
// admin state (blackout window). Implementations must expose atomic
// uniqueness and read-modify-write semantics: a uniqueness violation
// surfaced by Create or AddSocialLink is the sole source of truth for
// conflicts, and Kick must bump the epoch atomically so concurrent admin
// actions never lose an increment.
type Repository interface {
	// Lookups
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetBySocial(ctx context.Context, provider, subjectID string) (Account, error)

	// Create stores a new account. Returns ErrDuplicateUsername,
	// ErrDuplicateEmail or ErrDuplicateSocialLink on uniqueness violations.
	Create(ctx context.Context, params CreateParams) (uuid.UUID, error)

	// Mutations
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error
	UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []string) error
	MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error
	AddSocialLink(ctx context.Context, id uuid.UUID, link SocialLink) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error

	// ToggleBlacklist flips the active flag and returns the new banned state
	// (true = banned)
	ToggleBlacklist(ctx context.Context, id uuid.UUID) (bool, error)

	// ListBlacklisted returns all banned accounts ordered by username
	ListBlacklisted(ctx context.Context) ([]Account, error)

	// Kick atomically increments the account's token epoch, invalidating
	// previously issued tokens
	Kick(ctx context.Context, id uuid.UUID) error

	// Blackout window singleton. GetBlackout returns ErrBlackoutNotSet when
	// absent; implementations clear a window whose timestamp has passed at
	// read time.
	GetBlackout(ctx context.Context) (time.Time, error)
	SetBlackout(ctx context.Context, until time.Time) error
	DeleteBlackout(ctx context.Context) error
}
