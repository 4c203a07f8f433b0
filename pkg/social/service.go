package social

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

// maxUsernameProbes bounds the suffix search for a free username
const maxUsernameProbes = 20

// Service resolves provider callbacks to accounts and token pairs. Providers
// are registered once at construction; lookup is by name.
type Service struct {
	providers map[string]Provider
	repo      account.Repository
	engine    *tokenengine.Engine
}

// NewService creates a social login service with the given providers
func NewService(repo account.Repository, engine *tokenengine.Engine, providers ...Provider) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{
		providers: byName,
		repo:      repo,
		engine:    engine,
	}
}

// Provider returns the registered provider by name
func (s *Service) Provider(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// AuthorizeURL builds the redirect for the provider's authorization leg
func (s *Service) AuthorizeURL(providerName, state string) (string, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthorizeURL(state), nil
}

// Callback runs the provider code exchange and resolves the identity to a
// token pair
func (s *Service) Callback(ctx context.Context, providerName, code string) (tokenengine.TokenPair, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return tokenengine.TokenPair{}, err
	}

	subjectID, email, err := p.Exchange(ctx, code)
	if err != nil {
		slog.Error("Provider exchange failed", "provider", providerName, "err", err)
		return tokenengine.TokenPair{}, err
	}

	return s.Resolve(ctx, providerName, subjectID, email)
}

// Resolve maps (provider, subjectID, email) to an account, creating one when
// the identity is new, and issues a token pair.
//
// An email owned by an account without this social link is rejected rather
// than silently linked: two providers sharing an email must not grant access
// to each other's accounts.
func (s *Service) Resolve(ctx context.Context, providerName, subjectID, email string) (tokenengine.TokenPair, error) {
	if email == "" {
		return tokenengine.TokenPair{}, ErrMissingEmail
	}

	acct, err := s.repo.GetBySocial(ctx, providerName, subjectID)
	switch {
	case err == nil:
		return s.loginLinked(ctx, acct)
	case errors.Is(err, account.ErrAccountNotFound):
		// fall through to signup
	default:
		return tokenengine.TokenPair{}, err
	}

	_, err = s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return tokenengine.TokenPair{}, ErrEmailExists
	case errors.Is(err, account.ErrAccountNotFound):
		// email is free
	default:
		return tokenengine.TokenPair{}, err
	}

	acct, err = s.signup(ctx, providerName, subjectID, email)
	if err != nil {
		return tokenengine.TokenPair{}, err
	}

	return s.issue(acct)
}

func (s *Service) loginLinked(ctx context.Context, acct account.Account) (tokenengine.TokenPair, error) {
	if !acct.Active {
		return tokenengine.TokenPair{}, ErrBanned
	}

	if err := s.repo.UpdateLastLogin(ctx, acct.ID); err != nil {
		slog.Error("Failed to update last login", "err", err)
		return tokenengine.TokenPair{}, err
	}

	return s.issue(acct)
}

// signup creates the account, probing suffixed usernames on conflict. The
// probe retries on ErrDuplicateUsername because a concurrent callback may
// claim a candidate between lookup and create.
func (s *Service) signup(ctx context.Context, providerName, subjectID, email string) (account.Account, error) {
	base, _, found := strings.Cut(email, "@")
	if !found || base == "" {
		base = email
	}

	for i := 0; i <= maxUsernameProbes; i++ {
		username := base
		if i > 0 {
			username = base + strconv.Itoa(i-1)
		}

		id, err := s.repo.Create(ctx, account.CreateParams{
			Username:    username,
			Email:       email,
			Permissions: []string{},
			SocialLink:  &account.SocialLink{Provider: providerName, SubjectID: subjectID},
		})
		switch {
		case err == nil:
			slog.Info("Social account created", "provider", providerName, "username", username)
			return s.repo.Get(ctx, id)
		case errors.Is(err, account.ErrDuplicateUsername):
			continue
		case errors.Is(err, account.ErrDuplicateEmail):
			// Lost a race for the email since the earlier check
			return account.Account{}, ErrEmailExists
		case errors.Is(err, account.ErrDuplicateSocialLink):
			// A concurrent callback for the same identity won; log in
			return s.repo.GetBySocial(ctx, providerName, subjectID)
		default:
			return account.Account{}, err
		}
	}

	slog.Error("Username probe exhausted", "provider", providerName, "base", base)
	return account.Account{}, ErrUsernameExhausted
}

func (s *Service) issue(acct account.Account) (tokenengine.TokenPair, error) {
	return s.engine.IssuePair(tokenengine.ClaimsSource{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Permissions: acct.Permissions,
		Epoch:       acct.TokenEpoch,
	})
}
