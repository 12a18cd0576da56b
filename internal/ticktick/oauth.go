package ticktick

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

const (
	// AuthURL is TickTick's OAuth2 consent endpoint.
	AuthURL = "https://ticktick.com/oauth/authorize"

	// Scope is the only scope the application requests.
	Scope = "tasks:read"

	// DefaultRedirectURI matches the development callback route.
	DefaultRedirectURI = "http://127.0.0.1:8022/oauth/callback/"
)

// DefaultTokenURLs are tried in order during the code exchange. TickTick
// answers on both hosts depending on account region.
var DefaultTokenURLs = []string{
	"https://ticktick.com/oauth/token",
	"https://api.ticktick.com/oauth/token",
}

// Credentials holds the static OAuth client configuration. It is loaded
// once at process start and immutable afterwards.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// CredentialsFromEnv reads credentials from the environment. Both the
// TICKTICK_* and TT_* naming conventions are accepted, first non-empty wins.
func CredentialsFromEnv() Credentials {
	redirect := envFirst("TICKTICK_REDIRECT_URI", "TT_REDIRECT_URI")
	if redirect == "" {
		redirect = DefaultRedirectURI
	}
	return Credentials{
		ClientID:     envFirst("TICKTICK_CLIENT_ID", "TT_CLIENT_ID"),
		ClientSecret: envFirst("TICKTICK_CLIENT_SECRET", "TT_CLIENT_SECRET"),
		RedirectURI:  redirect,
	}
}

// AccessTokenFromEnv reads a pre-obtained access token for the playground
// command, accepting both naming conventions.
func AccessTokenFromEnv() string {
	return envFirst("TICKTICK_ACCESS_TOKEN", "TT_ACCESS_TOKEN")
}

// Validate checks that the client id and secret are configured.
func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("missing TICKTICK_CLIENT_ID/TT_CLIENT_ID in environment")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("missing TICKTICK_CLIENT_SECRET/TT_CLIENT_SECRET in environment")
	}
	return nil
}

func envFirst(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// OAuthFlow performs the authorization-code grant against TickTick.
// A failure at any step is terminal; nothing is retried.
type OAuthFlow struct {
	creds Credentials

	// TokenURLs are the token endpoints tried in order during Exchange.
	// Overridable for tests.
	TokenURLs []string
}

// NewOAuthFlow creates a flow for the given credentials.
func NewOAuthFlow(creds Credentials) *OAuthFlow {
	return &OAuthFlow{
		creds:     creds,
		TokenURLs: DefaultTokenURLs,
	}
}

// config returns the oauth2 configuration for the given token endpoint.
func (f *OAuthFlow) config(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.creds.ClientID,
		ClientSecret: f.creds.ClientSecret,
		RedirectURL:  f.creds.RedirectURI,
		Scopes:       []string{Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the consent URL embedding the configured client_id,
// redirect_uri, scope and the caller's state. Pure function of configuration.
func (f *OAuthFlow) AuthCodeURL(state string) (string, error) {
	if err := f.creds.Validate(); err != nil {
		return "", err
	}
	return f.config(f.TokenURLs[0]).AuthCodeURL(state), nil
}

// CodeFromCallback extracts the authorization code from the callback query
// parameters. It fails with ErrMissingCode when the code is absent.
func CodeFromCallback(query map[string][]string) (string, error) {
	vals, ok := query["code"]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return "", ErrMissingCode
	}
	return vals[0], nil
}

// Exchange trades the authorization code for an access token. Each token
// endpoint is tried once, in order; the first response carrying an access
// token wins. When all endpoints fail, the last provider error is surfaced
// as a *TokenExchangeError.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (string, error) {
	if err := f.creds.Validate(); err != nil {
		return "", err
	}

	lastErr := &TokenExchangeError{Body: "token exchange failed"}
	for _, tokenURL := range f.TokenURLs {
		// TickTick expects the scope repeated in the token request.
		tok, err := f.config(tokenURL).Exchange(ctx, code,
			oauth2.SetAuthURLParam("scope", Scope))
		if err == nil && tok.AccessToken != "" {
			return tok.AccessToken, nil
		}

		var retrieveErr *oauth2.RetrieveError
		switch {
		case errors.As(err, &retrieveErr):
			lastErr = &TokenExchangeError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		case err != nil:
			lastErr = &TokenExchangeError{Body: err.Error()}
		default:
			lastErr = &TokenExchangeError{Body: "token response missing access_token"}
		}
	}

	return "", lastErr
}
