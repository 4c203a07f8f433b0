package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is one configured OAuth identity source. Implementations are
// resolved by name once at startup; there is no dynamic dispatch.
type Provider interface {
	// Name is the stable identifier used in routes and stored links
	Name() string

	// AuthorizeURL builds the provider's authorization redirect for the
	// given anti-forgery state
	AuthorizeURL(state string) string

	// Exchange trades an authorization code for the provider's subject ID
	// and the account email. An empty email is a valid provider response.
	Exchange(ctx context.Context, code string) (subjectID, email string, err error)
}

// Config holds the OAuth client settings shared by all providers
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// httpClient is shared by the provider implementations
var httpClient = &http.Client{Timeout: 10 * time.Second}

func getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return doJSON(req, out)
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}
