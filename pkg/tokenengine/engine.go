package tokenengine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Claims carries the account snapshot embedded in every issued token.
// Subject holds the account ID. The snapshot is point-in-time: permission
// changes do not alter an already-issued token; the epoch claim lets callers
// detect forced re-authentication.
type Claims struct {
	Username    string    `json:"username,omitempty"`
	Permissions []string  `json:"permissions"`
	Kind        TokenKind `json:"kind"`
	Epoch       int64     `json:"epoch"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim as an account ID
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// HasPermission reports whether the permission snapshot contains perm
func (c *Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ClaimsSource is the account state a token pair is minted from
type ClaimsSource struct {
	AccountID   uuid.UUID
	Username    string
	Permissions []string
	Epoch       int64
}

// TokenPair holds a freshly issued access/refresh token pair
type TokenPair struct {
	AccessToken   string    `json:"access_token"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshToken  string    `json:"refresh_token"`
	RefreshExpiry time.Time `json:"refresh_expiry"`
}

// Engine issues and verifies signed token pairs. It has no storage
// dependency: verification is pure and never suspends.
type Engine struct {
	signer     Signer
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithAccessTokenExpiry sets the access token time-to-live
func WithAccessTokenExpiry(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.accessTTL = ttl
	}
}

// WithRefreshTokenExpiry sets the refresh token time-to-live
func WithRefreshTokenExpiry(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.refreshTTL = ttl
	}
}

// WithClock sets the time source, used by tests to simulate expiry
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new token engine
func NewEngine(signer Signer, issuer, audience string, opts ...EngineOption) *Engine {
	engine := &Engine{
		signer:     signer,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  DefaultAccessTokenExpiry,
		refreshTTL: DefaultRefreshTokenExpiry,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// IssuePair mints an access/refresh token pair from the given account state
func (e *Engine) IssuePair(src ClaimsSource) (TokenPair, error) {
	accessToken, accessExpiry, err := e.issue(src, KindAccess, e.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, refreshExpiry, err := e.issue(src, KindRefresh, e.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refreshToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// IssueAccess mints a single access token, used by the refresh flow
func (e *Engine) IssueAccess(src ClaimsSource) (string, time.Time, error) {
	return e.issue(src, KindAccess, e.accessTTL)
}

func (e *Engine) issue(src ClaimsSource, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := e.now()
	permissions := src.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	claims := Claims{
		Username:    src.Username,
		Permissions: permissions,
		Kind:        kind,
		Epoch:       src.Epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			Issuer:    e.issuer,
			Subject:   src.AccountID.String(),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{e.audience},
		},
	}

	token := jwt.NewWithClaims(e.signer.Method(), claims)
	if rsaSigner, ok := e.signer.(*RSASigner); ok {
		token.Header["kid"] = rsaSigner.KeyID()
	}

	signed, err := token.SignedString(e.signer.SignKey())
	if err != nil {
		slog.Error("Failed to sign token", "kind", kind, "err", err)
		return "", time.Time{}, err
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify parses the token, validates the signature, expiry, issuer and
// audience, and checks that the token is of the expected kind. It never
// consults storage; epoch freshness is the caller's responsibility.
func (e *Engine) Verify(tokenStr string, expected TokenKind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != e.signer.Method().Alg() {
			return nil, ErrTokenInvalidSignature
		}
		return e.signer.VerifyKey(), nil
	},
		jwt.WithTimeFunc(e.now),
		jwt.WithIssuer(e.issuer),
		jwt.WithAudience(e.audience),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		slog.Debug("Failed to parse token", "err", err)
		return nil, ErrTokenInvalidSignature
	}

	if !token.Valid {
		return nil, ErrTokenInvalidSignature
	}

	if claims.Kind != expected {
		slog.Warn("Token kind mismatch", "expected", expected, "got", claims.Kind)
		return nil, ErrTokenKindMismatch
	}

	return claims, nil
}
