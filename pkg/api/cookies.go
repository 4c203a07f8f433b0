package api

import (
	"net/http"
	"time"

	"github.com/tendant/simple-auth/pkg/tokenengine"
)

// Cookie names for the token pair
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// TokenCookieService writes and clears the HttpOnly token cookies
type TokenCookieService struct {
	Path   string
	Secure bool
}

// NewTokenCookieService creates a cookie service. secure should be true
// behind TLS so cookies carry the Secure attribute.
func NewTokenCookieService(secure bool) *TokenCookieService {
	return &TokenCookieService{Path: "/", Secure: secure}
}

// SetTokensCookie writes both token cookies with expiries matching the pair
func (s *TokenCookieService) SetTokensCookie(w http.ResponseWriter, pair tokenengine.TokenPair) {
	http.SetCookie(w, s.cookie(AccessTokenCookie, pair.AccessToken, pair.AccessExpiry))
	http.SetCookie(w, s.cookie(RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiry))
}

// SetAccessTokenCookie writes only the access token cookie, used by refresh
func (s *TokenCookieService) SetAccessTokenCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, s.cookie(AccessTokenCookie, token, expiry))
}

// ClearCookies expires both token cookies
func (s *TokenCookieService) ClearCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, s.cookie(AccessTokenCookie, "", expired))
	http.SetCookie(w, s.cookie(RefreshTokenCookie, "", expired))
}

func (s *TokenCookieService) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.Path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
