package account

import (
	"time"

	"github.com/google/uuid"
)

// SocialLink ties an account to an external provider identity.
// (Provider, SubjectID) is unique per provider across all accounts.
type SocialLink struct {
	Provider  string `json:"provider"`
	SubjectID string `json:"subject_id"`
}

// Account represents a user account.
//
// Invariants: Username and Email are globally unique; PasswordHash is nil
// exactly when the account is social-only; Permissions is a set (order
// irrelevant, no duplicates). TokenEpoch is bumped by Kick to invalidate
// previously issued tokens.
type Account struct {
	ID             uuid.UUID    `json:"id"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	PasswordHash   []byte       `json:"-"`
	Permissions    []string     `json:"permissions"`
	Active         bool         `json:"active"`
	EmailConfirmed bool         `json:"email_confirmed"`
	TokenEpoch     int64        `json:"-"`
	SocialLinks    []SocialLink `json:"social_links,omitempty"`
	LastLogin      *time.Time   `json:"last_login,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// HasPassword reports whether the account has a password set.
// Accounts created through social login start without one.
func (a Account) HasPassword() bool {
	return len(a.PasswordHash) > 0
}

// HasPermission reports whether the permission set contains perm
func (a Account) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CreateParams contains parameters for creating a new account
type CreateParams struct {
	Username     string
	Email        string
	PasswordHash []byte
	Permissions  []string
	SocialLink   *SocialLink
}

// Caller identifies the authenticated account behind a request. Operations
// that accept an optional caller take a *Caller; nil means unauthenticated.
type Caller struct {
	ID          uuid.UUID
	Username    string
	Permissions []string
}

// HasPermission reports whether the caller holds perm
func (c *Caller) HasPermission(perm string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller holds the admin permission
func (c *Caller) IsAdmin() bool {
	return c.HasPermission("admin")
}
