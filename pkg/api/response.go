package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	errs "github.com/tendant/simple-auth/pkg/errors"
	"github.com/tendant/simple-auth/pkg/social"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TokenResponse carries an issued token pair in the body; the same tokens
// ride in the HttpOnly cookies
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// StatusResponse is the generic single-field success body
type StatusResponse struct {
	Status string `json:"status"`
}

// CallerResponse echoes the authenticated caller back to the client
type CallerResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
}

// BlacklistEntry is one banned account in the admin blacklist listing
type BlacklistEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var socialErr *social.SocialError
	if errors.As(err, &socialErr) {
		render.Status(r, socialErr.Status)
		render.JSON(w, r, ErrorResponse{
			Code:    "SOCIAL_ERROR",
			Message: socialErr.Reason,
		})
		return
	}

	var structured *errs.Error
	if errors.As(err, &structured) {
		render.Status(r, structured.HTTPStatusCode())
		render.JSON(w, r, ErrorResponse{
			Code:    string(structured.Code),
			Message: structured.Message,
			Details: structured.Details,
		})
		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{
		Code:    string(errs.ErrCodeInternal),
		Message: "internal error",
	})
}

func renderOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, StatusResponse{Status: "ok"})
}
