package harness_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/harness"
	"github.com/logineko/wms-e2e-auth/internal/config"
	autherrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/logineko/wms-e2e-auth/internal/fakeidp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "e2e_tester"
	testPassword = "Valid-Passw0rd"
	testAppURL   = "https://app.example.com/logineko"
)

func setupEnv(t *testing.T) (*fakeidp.Server, config.Config) {
	t.Helper()

	idp, err := fakeidp.New(fakeidp.WithLogger(zerolog.New(zerolog.NewTestWriter(t))))
	require.NoError(t, err)
	_, err = idp.AddUser(fakeidp.User{Username: testUsername}, testPassword)
	require.NoError(t, err)
	srv := httptest.NewServer(idp)
	t.Cleanup(srv.Close)

	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("AUTH_BASE_URL", srv.URL)
	t.Setenv("AUTH_REALM", fakeidp.DefaultRealm)
	t.Setenv("AUTH_CLIENT_ID", fakeidp.DefaultClientID)
	t.Setenv("APP_URL", testAppURL)
	t.Setenv("COOKIE_DOMAIN", "")
	t.Setenv("TEST_USERNAME", testUsername)
	t.Setenv("TEST_PASSWORD", testPassword)
	t.Setenv("HARNESS_RETRIES", "1")
	t.Setenv("AUTH_PROFILES_FILE", "")

	cfg, err := config.New()
	require.NoError(t, err)
	return idp, cfg
}

func TestSetupAuthenticatedSession(t *testing.T) {
	_, cfg := setupEnv(t)
	dest := browser.NewMemory()

	tokens, err := harness.SetupAuthenticatedSession(context.Background(), cfg, dest)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)

	session, ok := dest.Cookie(bootstrap.CookieSession)
	require.True(t, ok)
	require.Equal(t, ".example.com", session.Domain)
	access, ok := dest.Item("https://app.example.com", bootstrap.StorageAccessToken)
	require.True(t, ok)
	require.Equal(t, tokens.AccessToken, access)
}

func TestSetupAuthenticatedSession_RetriesWithFreshAttempt(t *testing.T) {
	idp, cfg := setupEnv(t)
	idp.UpdateBehaviour(func(b *fakeidp.Behaviour) {
		b.TokenErrorStatus = http.StatusServiceUnavailable
		b.TokenErrorCode = "temporarily_unavailable"
	})
	dest := browser.NewMemory()

	_, err := harness.SetupAuthenticatedSession(context.Background(), cfg, dest)

	var exErr *bootstrap.TokenExchangeError
	require.ErrorAs(t, err, &exErr)
	require.Equal(t, 2, idp.AuthenticatePosts())
	require.Equal(t, 2, idp.TokenRequests())
	require.Empty(t, dest.Cookies())
}

func TestSetupAuthenticatedSession_RejectedCredentialsAreNotRetried(t *testing.T) {
	idp, cfg := setupEnv(t)
	t.Setenv("TEST_PASSWORD", "wrong")

	_, err := harness.SetupAuthenticatedSession(context.Background(), cfg, browser.NewMemory())

	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, 1, idp.AuthenticatePosts())
}

func TestSetupAuthenticatedSession_MissingCredentials(t *testing.T) {
	idp, cfg := setupEnv(t)
	t.Setenv("TEST_PASSWORD", "")

	_, err := harness.SetupAuthenticatedSession(context.Background(), cfg, browser.NewMemory())
	require.ErrorIs(t, err, autherrors.ErrMissingCredentials)
	require.Zero(t, idp.AuthenticatePosts())
}

func TestIsAuthenticated(t *testing.T) {
	const authBaseURL = "https://auth.example.com"

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "app page served",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>map</html>"))
			},
			want: true,
		},
		{
			name: "redirect within the app",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/logineko/map", http.StatusFound)
			},
			want: true,
		},
		{
			name: "redirect to identity provider",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, authBaseURL+"/realms/logineko/protocol/openid-connect/auth?client_id=frontend-vue", http.StatusFound)
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			ok, err := harness.IsAuthenticated(context.Background(), srv.Client(), srv.URL+"/logineko", authBaseURL)
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
		})
	}
}
