package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, CreateParams{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: []byte("hash"),
		Permissions:  []string{"admin"},
	})
	require.NoError(t, err)

	byID, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.True(t, byID.Active)
	assert.True(t, byID.HasPassword())
	assert.True(t, byID.HasPermission("admin"))
	assert.Equal(t, int64(0), byID.TokenEpoch)

	byUsername, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byUsername.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
}

func TestCreateDuplicates(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateParams{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = repo.Create(ctx, CreateParams{Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSocialLinks(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	link := SocialLink{Provider: "google", SubjectID: "g-123"}
	id, err := repo.Create(ctx, CreateParams{
		Username:   "alice",
		Email:      "alice@example.com",
		SocialLink: &link,
	})
	require.NoError(t, err)

	acct, err := repo.GetBySocial(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, id, acct.ID)
	assert.False(t, acct.HasPassword())

	// Same subject on a different provider is a distinct identity
	other, err := repo.Create(ctx, CreateParams{Username: "bob"})
	require.NoError(t, err)
	err = repo.AddSocialLink(ctx, other, SocialLink{Provider: "vk", SubjectID: "g-123"})
	require.NoError(t, err)

	err = repo.AddSocialLink(ctx, other, link)
	assert.ErrorIs(t, err, ErrDuplicateSocialLink)
}

func TestNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.GetByEmail(ctx, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.GetBySocial(ctx, "google", "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestToggleBlacklist(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, CreateParams{Username: "alice"})
	require.NoError(t, err)

	banned, err := repo.ToggleBlacklist(ctx, id)
	require.NoError(t, err)
	assert.True(t, banned)

	acct, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, acct.Active)

	banned, err = repo.ToggleBlacklist(ctx, id)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestKickBumpsEpoch(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, CreateParams{Username: "alice"})
	require.NoError(t, err)

	require.NoError(t, repo.Kick(ctx, id))
	require.NoError(t, repo.Kick(ctx, id))

	acct, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.TokenEpoch)
}

func TestBlackoutLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })

	_, err := repo.GetBlackout(ctx)
	assert.ErrorIs(t, err, ErrBlackoutNotSet)

	until := now.Add(10 * time.Second)
	require.NoError(t, repo.SetBlackout(ctx, until))

	got, err := repo.GetBlackout(ctx)
	require.NoError(t, err)
	assert.Equal(t, until, got)

	// Window clears itself once the timestamp passes
	now = now.Add(11 * time.Second)
	_, err = repo.GetBlackout(ctx)
	assert.ErrorIs(t, err, ErrBlackoutNotSet)

	require.NoError(t, repo.SetBlackout(ctx, now.Add(time.Minute)))
	require.NoError(t, repo.DeleteBlackout(ctx))
	_, err = repo.GetBlackout(ctx)
	assert.ErrorIs(t, err, ErrBlackoutNotSet)
}

func TestMutationsOnMissingAccount(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	missing := uuid.New()
	assert.ErrorIs(t, repo.UpdatePassword(ctx, missing, []byte("x")), ErrAccountNotFound)
	assert.ErrorIs(t, repo.Kick(ctx, missing), ErrAccountNotFound)
	_, err := repo.ToggleBlacklist(ctx, missing)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
