// Package oauth signs people in through third party identity providers.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gupshupx/gupshupx/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"

	DefaultGitHubUserInfoURL = "https://api.github.com/user"
	DefaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to the provider's public endpoints when empty.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// Provider exchanges authorization codes for identities of a single identity provider.
type Provider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	identify    func(body []byte) (*auth.Identity, error)
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

type UserInfoError struct {
	Provider   string
	StatusCode int
}

func (err UserInfoError) Error() string {
	return fmt.Sprintf("%s user info endpoint responded with status %d", err.Provider, err.StatusCode)
}

// Identify exchanges code for a token and reads the signed in person from the user info endpoint.
func (p *Provider) Identify(ctx context.Context, code string) (*auth.Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange %s authorization code: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s user info: %w", p.name, err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close user info response body", "provider", p.name, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &UserInfoError{Provider: p.name, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s user info: %w", p.name, err)
	}

	identity, err := p.identify(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s user info: %w", p.name, err)
	}

	identity.Provider = p.name

	return identity, nil
}

// NewGitHub returns nil when no client id is configured.
func NewGitHub(cfg Config) *Provider {
	if cfg.ClientID == "" {
		return nil
	}

	return newProvider(ProviderGitHub, cfg, endpoints.GitHub, DefaultGitHubUserInfoURL, []string{"read:user"}, identifyGitHub)
}

// NewGoogle returns nil when no client id is configured.
func NewGoogle(cfg Config) *Provider {
	if cfg.ClientID == "" {
		return nil
	}

	return newProvider(ProviderGoogle, cfg, endpoints.Google, DefaultGoogleUserInfoURL, []string{"openid", "profile"}, identifyGoogle)
}

func newProvider(
	name string,
	cfg Config,
	defaultEndpoint oauth2.Endpoint,
	defaultUserInfoURL string,
	scopes []string,
	identify func(body []byte) (*auth.Identity, error),
) *Provider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = defaultEndpoint
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}

	return &Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		identify:    identify,
	}
}

func identifyGitHub(body []byte) (*auth.Identity, error) {
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}

	err := json.Unmarshal(body, &user)
	if err != nil {
		return nil, err
	}

	username := user.Name
	if username == "" {
		username = user.Login
	}

	if user.ID == 0 {
		return nil, auth.ErrInvalidIdentity
	}

	return &auth.Identity{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Username:       username,
		AvatarURL:      user.AvatarURL,
	}, nil
}

func identifyGoogle(body []byte) (*auth.Identity, error) {
	var user struct {
		Subject string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	err := json.Unmarshal(body, &user)
	if err != nil {
		return nil, err
	}

	if user.Subject == "" {
		return nil, auth.ErrInvalidIdentity
	}

	return &auth.Identity{
		ProviderUserID: user.Subject,
		Username:       user.Name,
		AvatarURL:      user.Picture,
	}, nil
}

// Registry holds the enabled providers.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry ignores nil providers, so disabled providers never show up.
func NewRegistry(providers ...*Provider) *Registry {
	registry := &Registry{providers: make(map[string]*Provider, len(providers))}

	for _, provider := range providers {
		if provider == nil {
			continue
		}

		registry.providers[provider.name] = provider
	}

	return registry
}

func (registry *Registry) Get(name string) (*Provider, bool) {
	provider, ok := registry.providers[name]

	return provider, ok
}

// Names returns the enabled provider names in a stable order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))

	for name := range registry.providers {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
