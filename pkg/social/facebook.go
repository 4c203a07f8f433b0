package social

import (
	"context"
	"net/url"

	errs "github.com/tendant/simple-auth/pkg/errors"
)

// FacebookProvider exchanges authorization codes against the Facebook Graph
// API, then fetches id and email from /me.
type FacebookProvider struct {
	config Config
}

// NewFacebookProvider creates a Facebook provider
func NewFacebookProvider(config Config) *FacebookProvider {
	return &FacebookProvider{config: config}
}

func (p *FacebookProvider) Name() string { return "facebook" }

func (p *FacebookProvider) AuthorizeURL(state string) string {
	params := url.Values{
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.RedirectURL},
		"state":        {state},
		"scope":        {"email"},
	}
	return "https://www.facebook.com/v8.0/dialog/oauth?" + params.Encode()
}

func (p *FacebookProvider) Exchange(ctx context.Context, code string) (string, string, error) {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"code":          {code},
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	err := getJSON(ctx, "https://graph.facebook.com/v8.0/oauth/access_token?"+params.Encode(), &tokenResp)
	if err != nil {
		return "", "", errs.Wrap(err, errs.ErrCodeExternalProvider, "facebook token exchange failed")
	}

	meParams := url.Values{
		"access_token": {tokenResp.AccessToken},
		"fields":       {"id,email"},
	}

	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, "https://graph.facebook.com/me?"+meParams.Encode(), &me); err != nil {
		return "", "", errs.Wrap(err, errs.ErrCodeExternalProvider, "facebook profile fetch failed")
	}
	if me.ID == "" {
		return "", "", errs.New(errs.ErrCodeExternalProvider, "facebook profile missing id")
	}

	return me.ID, me.Email, nil
}
