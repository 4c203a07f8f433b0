package social

import (
	"context"
	"encoding/json"
	"net/url"

	errs "github.com/tendant/simple-auth/pkg/errors"
)

// VKProvider exchanges authorization codes against VK's OAuth endpoint,
// which returns the user id and email directly with the access token.
type VKProvider struct {
	config Config
}

// NewVKProvider creates a VK provider
func NewVKProvider(config Config) *VKProvider {
	return &VKProvider{config: config}
}

func (p *VKProvider) Name() string { return "vk" }

func (p *VKProvider) AuthorizeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"email"},
		"v":             {"5.122"},
		"state":         {state},
	}
	return "https://oauth.vk.com/authorize?" + params.Encode()
}

func (p *VKProvider) Exchange(ctx context.Context, code string) (string, string, error) {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"code":          {code},
	}

	// VK returns user_id as a number
	var tokenResp struct {
		UserID json.Number `json:"user_id"`
		Email  string      `json:"email"`
	}
	err := getJSON(ctx, "https://oauth.vk.com/access_token?"+params.Encode(), &tokenResp)
	if err != nil {
		return "", "", errs.Wrap(err, errs.ErrCodeExternalProvider, "vk token exchange failed")
	}
	if tokenResp.UserID.String() == "" {
		return "", "", errs.New(errs.ErrCodeExternalProvider, "vk response missing user id")
	}

	return tokenResp.UserID.String(), tokenResp.Email, nil
}
