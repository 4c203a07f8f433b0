package tokenengine

import (
	errs "github.com/tendant/simple-auth/pkg/errors"
)

// Verification failures. All of them require the client to re-authenticate;
// none are retried automatically.
var (
	// ErrTokenExpired is returned when the token expiry has passed
	ErrTokenExpired = errs.New(errs.ErrCodeTokenExpired, "token expired")

	// ErrTokenInvalidSignature is returned when the signature does not
	// validate or the token structure is malformed
	ErrTokenInvalidSignature = errs.New(errs.ErrCodeTokenInvalidSignature, "token signature invalid or malformed")

	// ErrTokenKindMismatch is returned when an access token is presented
	// where a refresh token is required, or vice versa
	ErrTokenKindMismatch = errs.New(errs.ErrCodeTokenKindMismatch, "token kind mismatch")

	// ErrTokenRevoked is returned by callers that compare the claim epoch
	// against the account's current token epoch
	ErrTokenRevoked = errs.New(errs.ErrCodeTokenRevoked, "token revoked, re-authentication required")
)
