package account

import (
	errs "github.com/tendant/simple-auth/pkg/errors"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup
	ErrAccountNotFound = errs.New(errs.ErrCodeNotFound, "account not found")

	// ErrDuplicateUsername is returned when a create or update would violate
	// username uniqueness
	ErrDuplicateUsername = errs.New(errs.ErrCodeConflict, "username already taken").WithDetail("field", "username")

	// ErrDuplicateEmail is returned when a create or update would violate
	// email uniqueness
	ErrDuplicateEmail = errs.New(errs.ErrCodeConflict, "email already taken").WithDetail("field", "email")

	// ErrDuplicateSocialLink is returned when a (provider, subject) pair is
	// already linked to another account
	ErrDuplicateSocialLink = errs.New(errs.ErrCodeConflict, "social identity already linked").WithDetail("field", "social_link")

	// ErrBlackoutNotSet is returned by GetBlackout when no blackout window
	// is in effect
	ErrBlackoutNotSet = errs.New(errs.ErrCodeNotFound, "no blackout window set")
)
