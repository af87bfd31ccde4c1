package connections

import (
	"fmt"
	"net/url"
)

// Provider builds the sign-in URL for a third-party account. The OAuth
// exchange itself happens at the provider and lands back on the app as a
// full-page redirect; this service only hands out the entry point.
type Provider interface {
	Name() string
	AuthURL(state string) (string, error)
}

// OAuthProvider is a config-driven Provider.
type OAuthProvider struct {
	ProviderName string
	AuthEndpoint string
	ClientID     string
	RedirectURI  string
	Scopes       string
}

func (p *OAuthProvider) Name() string { return p.ProviderName }

// AuthURL returns the provider authorization URL for the given state value.
// A misconfigured provider fails synchronously so the caller can surface a
// one-shot message without touching wizard state.
func (p *OAuthProvider) AuthURL(state string) (string, error) {
	if p.ClientID == "" {
		return "", fmt.Errorf("%s provider is not configured", p.ProviderName)
	}

	base, err := url.Parse(p.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid %s auth endpoint: %w", p.ProviderName, err)
	}

	q := base.Query()
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("state", state)
	if p.Scopes != "" {
		q.Set("scope", p.Scopes)
	}
	base.RawQuery = q.Encode()

	return base.String(), nil
}

// NewGitHubProvider returns the GitHub sign-in provider.
func NewGitHubProvider(clientID, redirectURI string) *OAuthProvider {
	return &OAuthProvider{
		ProviderName: "github",
		AuthEndpoint: "https://github.com/login/oauth/authorize",
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		Scopes:       "read:user",
	}
}

// NewLinkedInProvider returns the LinkedIn sign-in provider.
func NewLinkedInProvider(clientID, redirectURI string) *OAuthProvider {
	return &OAuthProvider{
		ProviderName: "linkedin",
		AuthEndpoint: "https://www.linkedin.com/oauth/v2/authorization",
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		Scopes:       "openid profile",
	}
}
