package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// InMemoryRepository implements Repository using in-memory storage.
// Used by tests and by dev mode in cmd/authd.
type InMemoryRepository struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]Account
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
	bySocial   map[SocialLink]uuid.UUID
	blackout   *time.Time

	now func() time.Time
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts:   make(map[uuid.UUID]Account),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
		bySocial:   make(map[SocialLink]uuid.UUID),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source, used by tests
func (r *InMemoryRepository) SetClock(now func() time.Time) {
	r.now = now
}

func cloneAccount(a Account) Account {
	clone := a
	clone.PasswordHash = append([]byte(nil), a.PasswordHash...)
	clone.Permissions = append([]string(nil), a.Permissions...)
	clone.SocialLinks = append([]SocialLink(nil), a.SocialLinks...)
	if a.LastLogin != nil {
		lastLogin := *a.LastLogin
		clone.LastLogin = &lastLogin
	}
	return clone
}

// Get returns an account by ID
func (r *InMemoryRepository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(acct), nil
}

// GetByUsername returns an account by username
func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(r.accounts[id]), nil
}

// GetByEmail returns an account by email
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if email == "" {
		return Account{}, ErrAccountNotFound
	}
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(r.accounts[id]), nil
}

// GetBySocial returns the account linked to (provider, subjectID)
func (r *InMemoryRepository) GetBySocial(ctx context.Context, provider, subjectID string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySocial[SocialLink{Provider: provider, SubjectID: subjectID}]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(r.accounts[id]), nil
}

// Create stores a new account, enforcing username/email/social uniqueness
// under a single lock so concurrent creates cannot both succeed
func (r *InMemoryRepository) Create(ctx context.Context, params CreateParams) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[params.Username]; exists {
		return uuid.Nil, ErrDuplicateUsername
	}
	if params.Email != "" {
		if _, exists := r.byEmail[params.Email]; exists {
			return uuid.Nil, ErrDuplicateEmail
		}
	}
	if params.SocialLink != nil {
		if _, exists := r.bySocial[*params.SocialLink]; exists {
			return uuid.Nil, ErrDuplicateSocialLink
		}
	}

	acct := Account{
		ID:           uuid.New(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: append([]byte(nil), params.PasswordHash...),
		Permissions:  append([]string{}, params.Permissions...),
		Active:       true,
		CreatedAt:    r.now(),
	}
	if params.SocialLink != nil {
		acct.SocialLinks = []SocialLink{*params.SocialLink}
		r.bySocial[*params.SocialLink] = acct.ID
	}

	r.accounts[acct.ID] = acct
	r.byUsername[acct.Username] = acct.ID
	if acct.Email != "" {
		r.byEmail[acct.Email] = acct.ID
	}
	return acct.ID, nil
}

// UpdatePassword replaces the account's password hash
func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acct.PasswordHash = append([]byte(nil), passwordHash...)
	r.accounts[id] = acct
	return nil
}

// UpdatePermissions replaces the account's permission set
func (r *InMemoryRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acct.Permissions = append([]string{}, permissions...)
	r.accounts[id] = acct
	return nil
}

// MarkEmailConfirmed marks the account's email as confirmed
func (r *InMemoryRepository) MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acct.EmailConfirmed = true
	r.accounts[id] = acct
	return nil
}

// AddSocialLink attaches a social identity to the account
func (r *InMemoryRepository) AddSocialLink(ctx context.Context, id uuid.UUID, link SocialLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if _, exists := r.bySocial[link]; exists {
		return ErrDuplicateSocialLink
	}
	acct.SocialLinks = append(acct.SocialLinks, link)
	r.accounts[id] = acct
	r.bySocial[link] = id
	return nil
}

// UpdateLastLogin records the current time as the account's last login
func (r *InMemoryRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	now := r.now()
	acct.LastLogin = &now
	r.accounts[id] = acct
	return nil
}

// ToggleBlacklist flips the active flag and returns the new banned state
func (r *InMemoryRepository) ToggleBlacklist(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return false, ErrAccountNotFound
	}
	acct.Active = !acct.Active
	r.accounts[id] = acct
	return !acct.Active, nil
}

// ListBlacklisted returns all banned accounts ordered by username
func (r *InMemoryRepository) ListBlacklisted(ctx context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var accounts []Account
	for _, acct := range r.accounts {
		if !acct.Active {
			accounts = append(accounts, cloneAccount(acct))
		}
	}
	slices.SortFunc(accounts, func(a, b Account) int {
		return strings.Compare(a.Username, b.Username)
	})
	return accounts, nil
}

// Kick atomically increments the account's token epoch
func (r *InMemoryRepository) Kick(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acct.TokenEpoch++
	r.accounts[id] = acct
	return nil
}

// GetBlackout returns the blackout window end, clearing an expired window
func (r *InMemoryRepository) GetBlackout(ctx context.Context) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blackout == nil {
		return time.Time{}, ErrBlackoutNotSet
	}
	if r.now().After(*r.blackout) {
		// Natural expiry at read time
		r.blackout = nil
		return time.Time{}, ErrBlackoutNotSet
	}
	return *r.blackout, nil
}

// SetBlackout sets the blackout window end timestamp
func (r *InMemoryRepository) SetBlackout(ctx context.Context, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blackout = &until
	return nil
}

// DeleteBlackout clears the blackout window
func (r *InMemoryRepository) DeleteBlackout(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blackout = nil
	return nil
}
