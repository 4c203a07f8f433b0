package api

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-auth/pkg/account"
	errs "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/session"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext returns the authenticated caller, or nil
func CallerFromContext(ctx context.Context) *account.Caller {
	caller, _ := ctx.Value(callerKey).(*account.Caller)
	return caller
}

// accessToken reads the token from the cookie, falling back to the
// Authorization bearer header for non-browser clients
func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// RequireAuth rejects requests without a live access token. Authentication
// re-checks account state, so bans and kicks take effect immediately.
func RequireAuth(sessions *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, ErrorResponse{
					Code:    string(errs.ErrCodeTokenInvalid),
					Message: "missing access token",
				})
				return
			}

			caller, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				renderError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
