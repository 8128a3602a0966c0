package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gupshupx/gupshupx/auth/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newProviderServer(t *testing.T, userInfo string, status int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer"}`))
	})

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(userInfo))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(srv *httptest.Server) oauth.Config {
	return oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/authorize",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/user",
	}
}

func TestGitHub_Identify(t *testing.T) {
	t.Parallel()

	srv := newProviderServer(t, `{"id":1234,"login":"alice","name":"","avatar_url":"https://avatars.example.com/a.png"}`, http.StatusOK)
	provider := oauth.NewGitHub(testConfig(srv))
	require.NotNil(t, provider)

	identity, err := provider.Identify(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, oauth.ProviderGitHub, identity.Provider)
	assert.Equal(t, "1234", identity.ProviderUserID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "https://avatars.example.com/a.png", identity.AvatarURL)
}

func TestGoogle_Identify(t *testing.T) {
	t.Parallel()

	srv := newProviderServer(t, `{"sub":"109876","name":"Bob","picture":"https://avatars.example.com/b.png"}`, http.StatusOK)
	provider := oauth.NewGoogle(testConfig(srv))
	require.NotNil(t, provider)

	identity, err := provider.Identify(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, oauth.ProviderGoogle, identity.Provider)
	assert.Equal(t, "109876", identity.ProviderUserID)
	assert.Equal(t, "Bob", identity.Username)
}

func TestProvider_IdentifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("bad code", func(t *testing.T) {
		t.Parallel()

		srv := newProviderServer(t, `{}`, http.StatusOK)
		provider := oauth.NewGitHub(testConfig(srv))

		_, err := provider.Identify(context.Background(), "bad-code")
		require.Error(t, err)
	})

	t.Run("user info error status", func(t *testing.T) {
		t.Parallel()

		srv := newProviderServer(t, `{}`, http.StatusForbidden)
		provider := oauth.NewGitHub(testConfig(srv))

		_, err := provider.Identify(context.Background(), "good-code")

		var userInfoErr *oauth.UserInfoError
		require.ErrorAs(t, err, &userInfoErr)
		assert.Equal(t, http.StatusForbidden, userInfoErr.StatusCode)
	})

	t.Run("incomplete identity", func(t *testing.T) {
		t.Parallel()

		srv := newProviderServer(t, `{"name":"nobody"}`, http.StatusOK)
		provider := oauth.NewGoogle(testConfig(srv))

		_, err := provider.Identify(context.Background(), "good-code")
		require.Error(t, err)
	})
}

func TestProvider_AuthCodeURL(t *testing.T) {
	t.Parallel()

	srv := newProviderServer(t, `{}`, http.StatusOK)
	provider := oauth.NewGitHub(testConfig(srv))

	authURL, err := url.Parse(provider.AuthCodeURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, "/authorize", authURL.Path)
	assert.Equal(t, "state-123", authURL.Query().Get("state"))
	assert.Equal(t, "client-id", authURL.Query().Get("client_id"))
	assert.Equal(t, "read:user", authURL.Query().Get("scope"))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	github := oauth.NewGitHub(oauth.Config{ClientID: "id"})
	google := oauth.NewGoogle(oauth.Config{})

	assert.Nil(t, google)

	registry := oauth.NewRegistry(github, google)

	assert.Equal(t, []string{oauth.ProviderGitHub}, registry.Names())

	_, ok := registry.Get(oauth.ProviderGoogle)
	assert.False(t, ok)

	provider, ok := registry.Get(oauth.ProviderGitHub)
	require.True(t, ok)
	assert.Equal(t, oauth.ProviderGitHub, provider.Name())
}
