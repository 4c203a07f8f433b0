package secrettoken

import (
	errs "github.com/tendant/simple-auth/pkg/errors"
)

var (
	// ErrTokenInvalid is returned when a presented secret does not match any
	// live token. Unknown, consumed and superseded secrets are deliberately
	// indistinguishable to the caller.
	ErrTokenInvalid = errs.New(errs.ErrCodeTokenInvalid, "invalid token")

	// ErrTokenExpired is returned when the presented secret matched a token
	// whose expiry has passed
	ErrTokenExpired = errs.New(errs.ErrCodeTokenExpired, "token expired")
)
