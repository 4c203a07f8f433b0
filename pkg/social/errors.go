package social

import (
	"fmt"
	"net/http"
)

// SocialError is a terminal outcome of the callback state machine. Reason is
// the stable wire-level explanation and Status the HTTP status it maps to.
type SocialError struct {
	Reason string
	Status int
}

func (e *SocialError) Error() string {
	return fmt.Sprintf("social login failed: %s", e.Reason)
}

// HTTPStatusCode returns the HTTP status for this outcome
func (e *SocialError) HTTPStatusCode() int {
	return e.Status
}

var (
	// ErrMissingEmail: the provider returned no email address
	ErrMissingEmail = &SocialError{Reason: "missing email", Status: http.StatusBadRequest}

	// ErrBanned: the linked account is blacklisted
	ErrBanned = &SocialError{Reason: "banned", Status: http.StatusUnauthorized}

	// ErrEmailExists: the email belongs to an account not linked to this
	// provider identity, so linking would be an account takeover
	ErrEmailExists = &SocialError{Reason: "email exists", Status: http.StatusUnauthorized}

	// ErrUsernameExhausted: suffix probing ran out of candidates
	ErrUsernameExhausted = &SocialError{Reason: "username exhausted", Status: http.StatusInternalServerError}

	// ErrUnknownProvider: no provider registered under the requested name
	ErrUnknownProvider = &SocialError{Reason: "unknown provider", Status: http.StatusNotFound}
)
