package password

import (
	errs "github.com/tendant/simple-auth/pkg/errors"
)

var (
	// ErrWrongPassword is returned by Change when the current password does
	// not match
	ErrWrongPassword = errs.New(errs.ErrCodeInvalidCredentials, "wrong password")

	// ErrPasswordAlreadySet is returned by Set when the account already has
	// a password. Accounts with a password change it through Change.
	ErrPasswordAlreadySet = errs.New(errs.ErrCodeConflict, "password already set")

	// ErrNoPassword is returned by Change when the account has no password
	// yet. Social-only accounts set their first password through Set.
	ErrNoPassword = errs.New(errs.ErrCodeValidationFailed, "account has no password")
)
