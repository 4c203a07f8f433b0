package api

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/simple-auth/pkg/admin"
	"github.com/tendant/simple-auth/pkg/emailconfirm"
	errs "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/session"
	"github.com/tendant/simple-auth/pkg/social"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

const stateCookie = "oauth_state"

// Handle exposes the auth services over HTTP
type Handle struct {
	sessions      *session.Service
	passwords     *password.Service
	confirmations *emailconfirm.Service
	socials       *social.Service
	admins        *admin.Service
	cookies       *TokenCookieService
}

// NewHandle creates the HTTP handle
func NewHandle(
	sessions *session.Service,
	passwords *password.Service,
	confirmations *emailconfirm.Service,
	socials *social.Service,
	admins *admin.Service,
	cookies *TokenCookieService,
) *Handle {
	return &Handle{
		sessions:      sessions,
		passwords:     passwords,
		confirmations: confirmations,
		socials:       socials,
		admins:        admins,
		cookies:       cookies,
	}
}

// Routes mounts all auth routes on the router
func (h *Handle) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.PostRegister)
		r.Post("/login", h.PostLogin)
		r.Post("/logout", h.PostLogout)
		r.Post("/token/refresh", h.PostTokenRefresh)

		r.Post("/forgot_password", h.PostForgotPassword)
		r.Post("/password/{token}", h.PostPasswordReset)
		r.Post("/confirm/{token}", h.PostConfirmEmail)

		r.Get("/{provider}/login", h.GetSocialLogin)
		r.Get("/{provider}/callback", h.GetSocialCallback)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.sessions))

			r.Post("/token", h.PostToken)

			r.Get("/confirm", h.GetConfirmStatus)
			r.Post("/confirm", h.PostRequestConfirm)

			r.Get("/password", h.GetPasswordStatus)
			r.Post("/password", h.PostPasswordSet)
			r.Put("/password", h.PutPasswordChange)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/blacklist", h.GetBlacklist)
				r.Get("/blackout", h.GetBlackout)
				r.Post("/blackout", h.PostBlackout)
				r.Delete("/blackout", h.DeleteBlackout)
				r.Get("/id/{username}", h.GetAccountID)
				r.Post("/{id}/blacklist", h.PostToggleBlacklist)
				r.Post("/{id}/permissions", h.PostUpdatePermissions)
				r.Post("/{id}/kick", h.PostKick)
			})
		})
	})
}

func (h *Handle) writeTokens(w http.ResponseWriter, r *http.Request, pair tokenengine.TokenPair) {
	h.cookies.SetTokensCookie(w, pair)

	var resp TokenResponse
	if err := copier.Copy(&resp, &pair); err != nil {
		slog.Error("Failed to map token response", "err", err)
		renderError(w, r, err)
		return
	}
	resp.TokenType = "bearer"
	render.JSON(w, r, resp)
}

// PostRegister handles POST /auth/register
func (h *Handle) PostRegister(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Email                string `json:"email"`
		Username             string `json:"username"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errs.ValidationFailed("body", "malformed JSON"))
		return
	}
	if data.Username == "" || data.Email == "" {
		renderError(w, r, errs.ValidationFailed("username", "username and email are required"))
		return
	}
	if data.Password != data.PasswordConfirmation {
		renderError(w, r, errs.ValidationFailed("password_confirmation", "passwords do not match"))
		return
	}

	pair, err := h.sessions.Register(r.Context(), data.Username, data.Email, data.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.writeTokens(w, r, pair)
}

// PostLogin handles POST /auth/login
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errs.ValidationFailed("body", "malformed JSON"))
		return
	}

	pair, err := h.sessions.Login(r.Context(), data.Login, data.Password, r.RemoteAddr)
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.writeTokens(w, r, pair)
}

// PostLogout handles POST /auth/logout. Tokens are stateless; logout clears
// the cookies and nothing else.
func (h *Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		renderError(w, r, err)
		return
	}
	h.cookies.ClearCookies(w)
	renderOK(w, r)
}

// PostTokenRefresh handles POST /auth/token/refresh
func (h *Handle) PostTokenRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		renderError(w, r, tokenengine.ErrTokenInvalidSignature)
		return
	}

	access, expiry, err := h.sessions.RefreshAccess(r.Context(), cookie.Value)
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.cookies.SetAccessTokenCookie(w, access, expiry)
	render.JSON(w, r, TokenResponse{AccessToken: access, TokenType: "bearer"})
}

// PostToken handles POST /auth/token, echoing the authenticated caller so
// clients can inspect who their token belongs to
func (h *Handle) PostToken(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	render.JSON(w, r, CallerResponse{
		ID:          caller.ID.String(),
		Username:    caller.Username,
		Permissions: caller.Permissions,
	})
}

// GetPasswordStatus handles GET /auth/password
func (h *Handle) GetPasswordStatus(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	has, err := h.passwords.Status(r.Context(), caller.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	status := "unset"
	if has {
		status = "set"
	}
	render.JSON(w, r, StatusResponse{Status: status})
}

type passwordBody struct {
	OldPassword          string `json:"old_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func decodePasswordBody(w http.ResponseWriter, r *http.Request) (passwordBody, bool) {
	var data passwordBody
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errs.ValidationFailed("body", "malformed JSON"))
		return data, false
	}
	if data.Password != data.PasswordConfirmation {
		renderError(w, r, errs.ValidationFailed("password_confirmation", "passwords do not match"))
		return data, false
	}
	return data, true
}

// PostPasswordSet handles POST /auth/password, first password for
// social-only accounts
func (h *Handle) PostPasswordSet(w http.ResponseWriter, r *http.Request) {
	data, ok := decodePasswordBody(w, r)
	if !ok {
		return
	}
	caller := CallerFromContext(r.Context())

	if err := h.passwords.Set(r.Context(), caller.ID, data.Password); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// PutPasswordChange handles PUT /auth/password
func (h *Handle) PutPasswordChange(w http.ResponseWriter, r *http.Request) {
	data, ok := decodePasswordBody(w, r)
	if !ok {
		return
	}
	caller := CallerFromContext(r.Context())

	if err := h.passwords.Change(r.Context(), caller.ID, data.OldPassword, data.Password); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// PostForgotPassword handles POST /auth/forgot_password. Always reports
// success so the endpoint cannot be used to probe registered emails.
func (h *Handle) PostForgotPassword(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Email string `json:"email"`
	}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errs.ValidationFailed("body", "malformed JSON"))
		return
	}

	if err := h.passwords.Forgot(r.Context(), data.Email, r.RemoteAddr); err != nil {
		slog.Error("Forgot password flow failed", "err", err)
	}
	renderOK(w, r)
}

// PostPasswordReset handles POST /auth/password/{token}
func (h *Handle) PostPasswordReset(w http.ResponseWriter, r *http.Request) {
	data, ok := decodePasswordBody(w, r)
	if !ok {
		return
	}

	if err := h.passwords.Reset(r.Context(), chi.URLParam(r, "token"), data.Password); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// GetConfirmStatus handles GET /auth/confirm
func (h *Handle) GetConfirmStatus(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	confirmed, err := h.confirmations.Status(r.Context(), caller.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"confirmed": confirmed})
}

// PostRequestConfirm handles POST /auth/confirm
func (h *Handle) PostRequestConfirm(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	if err := h.confirmations.Request(r.Context(), caller.ID); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// PostConfirmEmail handles POST /auth/confirm/{token}
func (h *Handle) PostConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.confirmations.Confirm(r.Context(), chi.URLParam(r, "token")); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// GetSocialLogin handles GET /auth/{provider}/login
func (h *Handle) GetSocialLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		renderError(w, r, err)
		return
	}

	authorizeURL, err := h.socials.AuthorizeURL(chi.URLParam(r, "provider"), state)
	if err != nil {
		renderError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authorizeURL, http.StatusTemporaryRedirect)
}

// GetSocialCallback handles GET /auth/{provider}/callback
func (h *Handle) GetSocialCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		renderError(w, r, errs.ValidationFailed("state", "missing or mismatched"))
		return
	}

	pair, err := h.socials.Callback(r.Context(), chi.URLParam(r, "provider"), r.URL.Query().Get("code"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.writeTokens(w, r, pair)
}

// GetAccountID handles GET /auth/admin/id/{username}
func (h *Handle) GetAccountID(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	id, err := h.admins.GetIDByUsername(r.Context(), caller, chi.URLParam(r, "username"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"id": id.String()})
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, errs.ValidationFailed("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// PostToggleBlacklist handles POST /auth/admin/{id}/blacklist
func (h *Handle) PostToggleBlacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	caller := CallerFromContext(r.Context())

	banned, err := h.admins.ToggleBlacklist(r.Context(), caller, id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"banned": banned})
}

// GetBlacklist handles GET /auth/admin/blacklist
func (h *Handle) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	accounts, err := h.admins.GetBlacklist(r.Context(), caller)
	if err != nil {
		renderError(w, r, err)
		return
	}

	entries := make([]BlacklistEntry, 0, len(accounts))
	for _, acct := range accounts {
		entries = append(entries, BlacklistEntry{
			ID:       acct.ID.String(),
			Username: acct.Username,
			Email:    acct.Email,
		})
	}
	render.JSON(w, r, map[string][]BlacklistEntry{"blacklist": entries})
}

// GetBlackout handles GET /auth/admin/blackout
func (h *Handle) GetBlackout(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	until, err := h.admins.GetBlackout(r.Context(), caller)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]time.Time{"until": until})
}

// PostBlackout handles POST /auth/admin/blackout
func (h *Handle) PostBlackout(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	until, err := h.admins.SetBlackout(r.Context(), caller)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]time.Time{"until": until})
}

// DeleteBlackout handles DELETE /auth/admin/blackout
func (h *Handle) DeleteBlackout(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	if err := h.admins.DeleteBlackout(r.Context(), caller); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// PostUpdatePermissions handles POST /auth/admin/{id}/permissions
func (h *Handle) PostUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	var data struct {
		Action     string `json:"action"`
		Permission string `json:"permission"`
	}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errs.ValidationFailed("body", "malformed JSON"))
		return
	}
	caller := CallerFromContext(r.Context())

	err := h.admins.UpdatePermissions(r.Context(), caller, id, admin.PermissionAction(data.Action), data.Permission)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

// PostKick handles POST /auth/admin/{id}/kick
func (h *Handle) PostKick(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	caller := CallerFromContext(r.Context())

	if err := h.admins.Kick(r.Context(), caller, id); err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, r)
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
