package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/admin"
	"github.com/tendant/simple-auth/pkg/emailconfirm"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/secrettoken"
	"github.com/tendant/simple-auth/pkg/session"
	"github.com/tendant/simple-auth/pkg/social"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

type apiFixture struct {
	router   chi.Router
	repo     *account.InMemoryRepository
	notifier *notification.MockNotifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := account.NewInMemoryRepository()
	engine := tokenengine.NewEngine(tokenengine.NewHMACSigner("test-secret"), "authd", "authd")
	notifier := &notification.MockNotifier{}
	manager, err := notification.NewDefaultManager(notifier)
	require.NoError(t, err)
	tokens := secrettoken.NewStore(secrettoken.NewInMemoryRepository())

	sessions := session.NewService(repo, engine)
	passwords := password.NewService(repo, tokens, manager)
	confirmations := emailconfirm.NewService(repo, tokens, manager)
	socials := social.NewService(repo, engine)
	admins := admin.NewService(repo)

	handle := NewHandle(sessions, passwords, confirmations, socials, admins, NewTokenCookieService(false))
	router := chi.NewRouter()
	handle.Routes(router)

	return &apiFixture{router: router, repo: repo, notifier: notifier}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func registerBody(username, email string) map[string]string {
	return map[string]string{
		"username":              username,
		"email":                 email,
		"password":              "secret1",
		"password_confirmation": "secret1",
	}
}

func TestRegisterSetsCookiesAndBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)

	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	require.NotNil(t, cookieByName(rec, RefreshTokenCookie))
}

func TestRegisterValidation(t *testing.T) {
	f := newAPIFixture(t)

	body := registerBody("alice", "alice@example.com")
	body["password_confirmation"] = "different"
	rec := f.do(t, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterConflictStatus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "other@example.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginAndProtectedRoute(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"login": "alice", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)

	rec = f.do(t, http.MethodGet, "/auth/password", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "set")

	// Without a cookie the route is unauthorized
	rec = f.do(t, http.MethodGet, "/auth/password", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"login": "alice", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenRefresh(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	refresh := cookieByName(rec, RefreshTokenCookie)
	require.NotNil(t, refresh)

	rec = f.do(t, http.MethodPost, "/auth/token/refresh", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieByName(rec, AccessTokenCookie))

	rec = f.do(t, http.MethodPost, "/auth/token/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenEchoesCaller(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)

	rec = f.do(t, http.MethodPost, "/auth/token", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, resp.ID)

	rec = f.do(t, http.MethodPost, "/auth/token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
}

func TestForgotPasswordUniformResponse(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))

	known := f.do(t, http.MethodPost, "/auth/forgot_password", map[string]string{"email": "alice@example.com"})
	unknown := f.do(t, http.MethodPost, "/auth/forgot_password", map[string]string{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Len(t, f.notifier.Sent, 1)
}

func TestAdminRoutesRequirePermission(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)

	rec = f.do(t, http.MethodGet, "/auth/admin/blackout", nil, access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	// Bootstrap an admin directly in the repository, then log in
	_, err := f.repo.Create(ctx, account.CreateParams{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: mustBcrypt(t, "secret1"),
		Permissions:  []string{"admin"},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"login": "root", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)

	f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))

	rec = f.do(t, http.MethodGet, "/auth/admin/id/alice", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	var idResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idResp))

	rec = f.do(t, http.MethodPost, "/auth/admin/"+idResp["id"]+"/blacklist", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")

	rec = f.do(t, http.MethodGet, "/auth/admin/blacklist", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp map[string][]BlacklistEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp["blacklist"], 1)
	assert.Equal(t, "alice", listResp["blacklist"][0].Username)

	rec = f.do(t, http.MethodPost, "/auth/admin/"+idResp["id"]+"/permissions", map[string]string{
		"action": "BOGUS", "permission": "x",
	}, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKickInvalidatesOutstandingToken(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/auth/register", registerBody("alice", "alice@example.com"))
	access := cookieByName(rec, AccessTokenCookie)
	require.NotNil(t, access)

	acct, err := f.repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.repo.Kick(ctx, acct.ID))

	rec = f.do(t, http.MethodGet, "/auth/password", nil, access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mustBcrypt(t *testing.T, pwd string) []byte {
	t.Helper()

	hash, err := password.NewBcryptHasher(4).Hash(pwd)
	require.NoError(t, err)
	return hash
}
