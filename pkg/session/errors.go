package session

import (
	errs "github.com/tendant/simple-auth/pkg/errors"
)

var (
	// ErrInvalidCredentials is returned on unknown identifier or password
	// mismatch. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errs.New(errs.ErrCodeInvalidCredentials, "invalid username or password")

	// ErrAccountBanned is returned when the account has been blacklisted
	ErrAccountBanned = errs.New(errs.ErrCodeAccountBanned, "account is banned")

	// ErrLockedOut is returned when a blackout window is in effect
	ErrLockedOut = errs.New(errs.ErrCodeLockedOut, "logins are temporarily disabled")
)
