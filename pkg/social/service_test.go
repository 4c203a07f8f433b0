package social

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

// fakeProvider satisfies Provider without network calls
type fakeProvider struct {
	name      string
	subjectID string
	email     string
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) AuthorizeURL(state string) string {
	return "https://example.com/authorize?state=" + state
}
func (p *fakeProvider) Exchange(ctx context.Context, code string) (string, string, error) {
	return p.subjectID, p.email, nil
}

func newSocialService(t *testing.T, providers ...Provider) (*Service, *account.InMemoryRepository, *tokenengine.Engine) {
	t.Helper()

	repo := account.NewInMemoryRepository()
	engine := tokenengine.NewEngine(tokenengine.NewHMACSigner("test-secret"), "authd", "authd")
	return NewService(repo, engine, providers...), repo, engine
}

func TestResolveCreatesAccount(t *testing.T) {
	service, repo, engine := newSocialService(t)
	ctx := context.Background()

	pair, err := service.Resolve(ctx, "google", "g-123", "alice@example.com")
	require.NoError(t, err)

	claims, err := engine.Verify(pair.AccessToken, tokenengine.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	acct, err := repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, "alice@example.com", acct.Email)
	assert.False(t, acct.HasPassword())
}

func TestResolveExistingLinkLogsIn(t *testing.T) {
	service, repo, _ := newSocialService(t)
	ctx := context.Background()

	_, err := service.Resolve(ctx, "google", "g-123", "alice@example.com")
	require.NoError(t, err)

	// Second callback for the same identity is a login, not a signup
	_, err = service.Resolve(ctx, "google", "g-123", "alice@example.com")
	require.NoError(t, err)

	acct, err := repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.NotNil(t, acct.LastLogin)

	_, err = repo.GetByUsername(ctx, "alice0")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestResolveMissingEmail(t *testing.T) {
	service, _, _ := newSocialService(t)

	_, err := service.Resolve(context.Background(), "google", "g-123", "")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestResolveBannedAccount(t *testing.T) {
	service, repo, _ := newSocialService(t)
	ctx := context.Background()

	_, err := service.Resolve(ctx, "google", "g-123", "alice@example.com")
	require.NoError(t, err)

	acct, err := repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
	_, err = repo.ToggleBlacklist(ctx, acct.ID)
	require.NoError(t, err)

	_, err = service.Resolve(ctx, "google", "g-123", "alice@example.com")
	assert.ErrorIs(t, err, ErrBanned)
}

func TestResolveEmailOwnedElsewhere(t *testing.T) {
	service, repo, _ := newSocialService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, account.CreateParams{
		Username: "alice", Email: "alice@example.com", PasswordHash: []byte("hash"),
	})
	require.NoError(t, err)

	_, err = service.Resolve(ctx, "google", "g-123", "alice@example.com")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestResolveUsernameSuffixProbe(t *testing.T) {
	service, repo, _ := newSocialService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, account.CreateParams{Username: "alice", Email: "alice@other.com"})
	require.NoError(t, err)

	_, err = service.Resolve(ctx, "google", "g-123", "alice@example.com")
	require.NoError(t, err)

	acct, err := repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, "alice0", acct.Username)

	// A third alice lands on alice1
	_, err = service.Resolve(ctx, "vk", "v-9", "alice@elsewhere.net")
	require.NoError(t, err)

	acct, err = repo.GetBySocial(ctx, "vk", "v-9")
	require.NoError(t, err)
	assert.Equal(t, "alice1", acct.Username)
}

func TestResolveUsernameExhausted(t *testing.T) {
	service, repo, _ := newSocialService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, account.CreateParams{Username: "alice", Email: "alice@taken.com"})
	require.NoError(t, err)
	for i := 0; i < maxUsernameProbes; i++ {
		_, err := repo.Create(ctx, account.CreateParams{
			Username: "alice" + strconv.Itoa(i),
			Email:    "alice" + strconv.Itoa(i) + "@taken.com",
		})
		require.NoError(t, err)
	}

	_, err = service.Resolve(ctx, "google", "g-123", "alice@example.com")
	assert.ErrorIs(t, err, ErrUsernameExhausted)
}

func TestCallbackThroughProvider(t *testing.T) {
	provider := &fakeProvider{name: "google", subjectID: "g-123", email: "alice@example.com"}
	service, repo, _ := newSocialService(t, provider)
	ctx := context.Background()

	pair, err := service.Callback(ctx, "google", "some-code")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
}

func TestUnknownProvider(t *testing.T) {
	service, _, _ := newSocialService(t)

	_, err := service.AuthorizeURL("github", "state")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = service.Callback(context.Background(), "github", "code")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestAuthorizeURLs(t *testing.T) {
	config := Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://app/callback"}

	google := NewGoogleProvider(config)
	assert.Contains(t, google.AuthorizeURL("xyz"), "accounts.google.com")
	assert.Contains(t, google.AuthorizeURL("xyz"), "state=xyz")

	facebook := NewFacebookProvider(config)
	assert.Contains(t, facebook.AuthorizeURL("xyz"), "facebook.com")

	vk := NewVKProvider(config)
	assert.Contains(t, vk.AuthorizeURL("xyz"), "oauth.vk.com")
	assert.Contains(t, vk.AuthorizeURL("xyz"), "scope=email")
}
