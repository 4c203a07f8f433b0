package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

// dummyBcryptHash is verified against when the login identifier matches no
// account, so unknown identifiers cost the same as wrong passwords.
var dummyBcryptHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service implements registration, login and token refresh on top of the
// token engine and account repository. Tokens are stateless; ban and kick
// enforcement happens here by re-reading account state.
type Service struct {
	repo          account.Repository
	engine        *tokenengine.Engine
	hasher        password.Hasher
	policyChecker password.PolicyChecker
}

// Option configures the service
type Option func(*Service)

// WithHasher overrides the password hasher
func WithHasher(h password.Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithPolicyChecker overrides the password policy checker used at
// registration
func WithPolicyChecker(pc password.PolicyChecker) Option {
	return func(s *Service) {
		s.policyChecker = pc
	}
}

// NewService creates a session service
func NewService(repo account.Repository, engine *tokenengine.Engine, opts ...Option) *Service {
	service := &Service{
		repo:          repo,
		engine:        engine,
		hasher:        password.NewBcryptHasher(0),
		policyChecker: password.NewDefaultPolicyChecker(password.DefaultPolicy()),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Register creates a password-based account and issues its first token pair.
// Username and email uniqueness is enforced by the repository; conflicts
// surface as the account package's duplicate errors.
func (s *Service) Register(ctx context.Context, username, email, pwd string) (tokenengine.TokenPair, error) {
	if err := s.policyChecker.CheckPassword(pwd); err != nil {
		return tokenengine.TokenPair{}, err
	}

	hash, err := s.hasher.Hash(pwd)
	if err != nil {
		slog.Error("Failed to hash password", "err", err)
		return tokenengine.TokenPair{}, err
	}

	id, err := s.repo.Create(ctx, account.CreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Permissions:  []string{},
	})
	if err != nil {
		return tokenengine.TokenPair{}, err
	}

	slog.Info("Account registered", "username", username)

	return s.engine.IssuePair(tokenengine.ClaimsSource{
		AccountID:   id,
		Username:    username,
		Permissions: []string{},
	})
}

// Login authenticates by username or email and issues a token pair. A
// blackout window in effect rejects all logins.
func (s *Service) Login(ctx context.Context, identifier, pwd, clientIP string) (tokenengine.TokenPair, error) {
	if _, err := s.repo.GetBlackout(ctx); err == nil {
		slog.Warn("Login rejected during blackout", "client_ip", clientIP)
		return tokenengine.TokenPair{}, ErrLockedOut
	} else if !errors.Is(err, account.ErrBlackoutNotSet) {
		return tokenengine.TokenPair{}, err
	}

	acct, err := s.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			s.hasher.Verify(dummyBcryptHash, pwd)
			return tokenengine.TokenPair{}, ErrInvalidCredentials
		}
		return tokenengine.TokenPair{}, err
	}

	if !acct.HasPassword() || !s.hasher.Verify(acct.PasswordHash, pwd) {
		return tokenengine.TokenPair{}, ErrInvalidCredentials
	}

	if !acct.Active {
		return tokenengine.TokenPair{}, ErrAccountBanned
	}

	if err := s.repo.UpdateLastLogin(ctx, acct.ID); err != nil {
		slog.Error("Failed to update last login", "err", err)
		return tokenengine.TokenPair{}, err
	}

	slog.Info("Login succeeded", "username", acct.Username, "client_ip", clientIP)

	return s.engine.IssuePair(tokenengine.ClaimsSource{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Permissions: acct.Permissions,
		Epoch:       acct.TokenEpoch,
	})
}

// RefreshAccess verifies a refresh token and mints a new access token from
// the account's current state, so permission changes propagate within one
// access token lifetime. The refresh token is not rotated.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (string, time.Time, error) {
	acct, err := s.verifyLive(ctx, refreshToken, tokenengine.KindRefresh)
	if err != nil {
		return "", time.Time{}, err
	}

	return s.engine.IssueAccess(tokenengine.ClaimsSource{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Permissions: acct.Permissions,
		Epoch:       acct.TokenEpoch,
	})
}

// Authenticate verifies an access token and re-checks live account state.
// Banned accounts fail even with a valid token, and tokens minted before the
// last kick fail with ErrTokenRevoked.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*account.Caller, error) {
	acct, err := s.verifyLive(ctx, accessToken, tokenengine.KindAccess)
	if err != nil {
		return nil, err
	}

	return &account.Caller{
		ID:          acct.ID,
		Username:    acct.Username,
		Permissions: acct.Permissions,
	}, nil
}

// Logout exists as a client-side discard signal. Stateless tokens cannot be
// server-invalidated here; admins revoke via kick, which bumps the epoch.
func (s *Service) Logout(ctx context.Context) error {
	return nil
}

func (s *Service) verifyLive(ctx context.Context, token string, kind tokenengine.TokenKind) (account.Account, error) {
	claims, err := s.engine.Verify(token, kind)
	if err != nil {
		return account.Account{}, err
	}

	id, err := claims.AccountID()
	if err != nil {
		return account.Account{}, tokenengine.ErrTokenInvalidSignature
	}

	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, tokenengine.ErrTokenRevoked
		}
		return account.Account{}, err
	}

	if !acct.Active {
		return account.Account{}, ErrAccountBanned
	}

	if claims.Epoch != acct.TokenEpoch {
		return account.Account{}, tokenengine.ErrTokenRevoked
	}

	return acct, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (account.Account, error) {
	acct, err := s.repo.GetByUsername(ctx, identifier)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound) {
		return account.Account{}, err
	}
	return s.repo.GetByEmail(ctx, identifier)
}
