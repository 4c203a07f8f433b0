package password

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/secrettoken"
)

// plainHasher keeps tests fast and deterministic
type plainHasher struct{}

func (plainHasher) Hash(password string) ([]byte, error) { return []byte("h:" + password), nil }
func (plainHasher) Verify(hash []byte, password string) bool {
	return string(hash) == "h:"+password
}

type passwordFixture struct {
	repo     *account.InMemoryRepository
	service  *Service
	notifier *notification.MockNotifier
}

func newPasswordFixture(t *testing.T) *passwordFixture {
	t.Helper()

	repo := account.NewInMemoryRepository()
	notifier := &notification.MockNotifier{}
	manager, err := notification.NewDefaultManager(notifier)
	require.NoError(t, err)

	tokens := secrettoken.NewStore(secrettoken.NewInMemoryRepository())
	service := NewService(repo, tokens, manager, WithHasher(plainHasher{}))

	return &passwordFixture{repo: repo, service: service, notifier: notifier}
}

func TestStatus(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	withPwd, err := f.repo.Create(ctx, account.CreateParams{Username: "alice", PasswordHash: []byte("h:x")})
	require.NoError(t, err)
	withoutPwd, err := f.repo.Create(ctx, account.CreateParams{Username: "bob"})
	require.NoError(t, err)

	has, err := f.service.Status(ctx, withPwd)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = f.service.Status(ctx, withoutPwd)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSetFirstPassword(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{Username: "alice"})
	require.NoError(t, err)

	require.NoError(t, f.service.Set(ctx, id, "secret1"))

	acct, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("h:secret1"), acct.PasswordHash)

	// A second Set is rejected
	err = f.service.Set(ctx, id, "secret2")
	assert.ErrorIs(t, err, ErrPasswordAlreadySet)
}

func TestChange(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{Username: "alice", PasswordHash: []byte("h:old-pass")})
	require.NoError(t, err)

	err = f.service.Change(ctx, id, "wrong", "new-pass")
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, f.service.Change(ctx, id, "old-pass", "new-pass"))

	acct, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("h:new-pass"), acct.PasswordHash)
}

func TestChangeWithoutPassword(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{Username: "alice"})
	require.NoError(t, err)

	err = f.service.Change(ctx, id, "", "new-pass")
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestPolicyRejectsShortPassword(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{Username: "alice"})
	require.NoError(t, err)

	err = f.service.Set(ctx, id, "short")
	assert.Error(t, err)
}

func TestForgotAndReset(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{
		Username: "alice", Email: "alice@example.com", PasswordHash: []byte("h:old-pass"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Forgot(ctx, "alice@example.com", "192.0.2.1"))
	require.Len(t, f.notifier.Sent, 1)
	assert.Equal(t, "alice@example.com", f.notifier.LastTo())

	link := f.notifier.Sent[0].Notification.Data["link"]
	secret := secretFromLink(t, link)

	require.NoError(t, f.service.Reset(ctx, secret, "brand-new-pass"))

	acct, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("h:brand-new-pass"), acct.PasswordHash)

	// The token is single use
	err = f.service.Reset(ctx, secret, "another-pass")
	assert.ErrorIs(t, err, secrettoken.ErrTokenInvalid)
}

func TestForgotUnknownEmailSucceeds(t *testing.T) {
	f := newPasswordFixture(t)

	require.NoError(t, f.service.Forgot(context.Background(), "nobody@example.com", "192.0.2.1"))
	assert.Empty(t, f.notifier.Sent)
}

func TestResetRejectedPasswordKeepsToken(t *testing.T) {
	f := newPasswordFixture(t)
	ctx := context.Background()

	id, err := f.repo.Create(ctx, account.CreateParams{
		Username: "alice", Email: "alice@example.com", PasswordHash: []byte("h:old-pass"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Forgot(ctx, "alice@example.com", "192.0.2.1"))
	require.Len(t, f.notifier.Sent, 1)
	secret := secretFromLink(t, f.notifier.Sent[0].Notification.Data["link"])

	// A policy-rejected password must not consume the token
	err = f.service.Reset(ctx, secret, "abc")
	require.Error(t, err)

	require.NoError(t, f.service.Reset(ctx, secret, "longenough"))

	acct, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("h:longenough"), acct.PasswordHash)
}

func secretFromLink(t *testing.T, link string) string {
	t.Helper()

	const marker = "?token="
	idx := strings.Index(link, marker)
	require.GreaterOrEqual(t, idx, 0, "reset link missing token")
	return link[idx+len(marker):]
}
