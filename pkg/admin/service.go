package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/account"
	errs "github.com/tendant/simple-auth/pkg/errors"
	"golang.org/x/exp/slices"
)

// PermissionAction names a permission mutation
type PermissionAction string

const (
	ActionAdd    PermissionAction = "ADD"
	ActionRemove PermissionAction = "REMOVE"
	ActionClear  PermissionAction = "CLEAR"
)

// DefaultBlackoutGrace is how far in the future a fresh blackout window ends
const DefaultBlackoutGrace = 10 * time.Second

// ErrNotAdmin is returned when the caller lacks the admin permission
var ErrNotAdmin = errs.Forbidden("admin permission required")

// Service is the admin control plane: blacklisting, the global blackout
// window, permission mutation and forced re-authentication. Every operation
// requires a caller holding the admin permission.
type Service struct {
	repo  account.Repository
	grace time.Duration
	now   func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithBlackoutGrace sets the blackout window length
func WithBlackoutGrace(d time.Duration) Option {
	return func(s *Service) {
		s.grace = d
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an admin service
func NewService(repo account.Repository, opts ...Option) *Service {
	service := &Service{
		repo:  repo,
		grace: DefaultBlackoutGrace,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func requireAdmin(caller *account.Caller) error {
	if !caller.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// GetIDByUsername resolves a username to an account ID
func (s *Service) GetIDByUsername(ctx context.Context, caller *account.Caller, username string) (uuid.UUID, error) {
	if err := requireAdmin(caller); err != nil {
		return uuid.Nil, err
	}

	acct, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return acct.ID, nil
}

// ToggleBlacklist flips the account's banned flag and returns the new state.
// Banned accounts fail login and every authenticated request; existing
// tokens do not need to expire first because live state is re-checked.
func (s *Service) ToggleBlacklist(ctx context.Context, caller *account.Caller, id uuid.UUID) (bool, error) {
	if err := requireAdmin(caller); err != nil {
		return false, err
	}

	banned, err := s.repo.ToggleBlacklist(ctx, id)
	if err != nil {
		return false, err
	}

	slog.Info("Blacklist toggled", "account_id", id, "banned", banned, "by", caller.Username)
	return banned, nil
}

// GetBlacklist lists all banned accounts
func (s *Service) GetBlacklist(ctx context.Context, caller *account.Caller) ([]account.Account, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.repo.ListBlacklisted(ctx)
}

// GetBlackout returns the end of the active blackout window, or the
// repository's not-set error when none is in effect
func (s *Service) GetBlackout(ctx context.Context, caller *account.Caller) (time.Time, error) {
	if err := requireAdmin(caller); err != nil {
		return time.Time{}, err
	}
	return s.repo.GetBlackout(ctx)
}

// SetBlackout starts a blackout window ending one grace period from now and
// returns its end
func (s *Service) SetBlackout(ctx context.Context, caller *account.Caller) (time.Time, error) {
	if err := requireAdmin(caller); err != nil {
		return time.Time{}, err
	}

	until := s.now().Add(s.grace)
	if err := s.repo.SetBlackout(ctx, until); err != nil {
		return time.Time{}, err
	}

	slog.Warn("Blackout window set", "until", until, "by", caller.Username)
	return until, nil
}

// DeleteBlackout clears the blackout window
func (s *Service) DeleteBlackout(ctx context.Context, caller *account.Caller) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	if err := s.repo.DeleteBlackout(ctx); err != nil {
		return err
	}

	slog.Info("Blackout window cleared", "by", caller.Username)
	return nil
}

// UpdatePermissions mutates the account's permission set. ADD inserts with
// set semantics, REMOVE is no-op tolerant when the permission is absent,
// CLEAR empties the set. Every successful mutation kicks the account so
// outstanding tokens lose the stale permission snapshot.
func (s *Service) UpdatePermissions(ctx context.Context, caller *account.Caller, id uuid.UUID, action PermissionAction, permission string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	var updated []string
	switch action {
	case ActionAdd:
		if permission == "" {
			return errs.ValidationFailed("permission", "cannot be empty")
		}
		updated = acct.Permissions
		if !slices.Contains(updated, permission) {
			updated = append(updated, permission)
		}
	case ActionRemove:
		updated = slices.DeleteFunc(slices.Clone(acct.Permissions), func(p string) bool {
			return p == permission
		})
	case ActionClear:
		updated = []string{}
	default:
		return errs.ValidationFailed("action", "must be ADD, REMOVE or CLEAR")
	}

	if err := s.repo.UpdatePermissions(ctx, id, updated); err != nil {
		return err
	}

	slog.Info("Permissions updated", "account_id", id, "action", action, "by", caller.Username)

	return s.Kick(ctx, caller, id)
}

// Kick increments the account's token epoch, forcing re-authentication:
// tokens issued before the kick fail verification with a revoked error.
func (s *Service) Kick(ctx context.Context, caller *account.Caller, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	if err := s.repo.Kick(ctx, id); err != nil {
		return err
	}

	slog.Info("Account kicked", "account_id", id, "by", caller.Username)
	return nil
}
