package bootstrap_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/internal/fakeidp"
	"github.com/stretchr/testify/require"
)

func TestLogin_InstallsSession(t *testing.T) {
	f := setupTestFixture(t, nil)

	tokens, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotEmpty(t, tokens.IDToken)
	require.Equal(t, "Bearer", tokens.TokenType)

	session, ok := f.dest.Cookie(bootstrap.CookieSession)
	require.True(t, ok)
	require.Equal(t, "authenticated", session.Value)
	require.Equal(t, ".example.com", session.Domain)
	require.Equal(t, "/", session.Path)
	require.True(t, session.Secure)
	require.Equal(t, http.SameSiteNoneMode, session.SameSite)

	identity, ok := f.dest.Cookie(bootstrap.CookieIdentity)
	require.True(t, ok)
	require.Equal(t, tokens.IDToken, identity.Value)
	require.True(t, identity.HTTPOnly)
	require.Equal(t, ".example.com", identity.Domain)

	access, ok := f.dest.Item(testAppOrigin, bootstrap.StorageAccessToken)
	require.True(t, ok)
	require.Equal(t, tokens.AccessToken, access)
	refresh, ok := f.dest.Item(testAppOrigin, bootstrap.StorageRefreshToken)
	require.True(t, ok)
	require.Equal(t, tokens.RefreshToken, refresh)
	id, ok := f.dest.Item(testAppOrigin, bootstrap.StorageIDToken)
	require.True(t, ok)
	require.Equal(t, tokens.IDToken, id)

	require.Equal(t, 1, f.idp.AuthenticatePosts())
	require.Equal(t, 1, f.idp.TokenRequests())
}

func TestLogin_InvalidPassword(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.client.Login(context.Background(), testUsername, "wrong-password", testRedirectURI)

	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, bootstrap.StageAuthenticate, authErr.Stage)
	require.Equal(t, http.StatusOK, authErr.StatusCode)
	require.Contains(t, authErr.Snippet, "Invalid username or password.")
	require.NotContains(t, err.Error(), "wrong-password")
	require.Zero(t, f.idp.TokenRequests())
	f.requireNothingInstalled(t)
}

func TestLogin_ForcedUnauthorizedIsNotRetried(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.idp.UpdateBehaviour(func(b *fakeidp.Behaviour) {
		b.AuthenticateStatus = http.StatusUnauthorized
	})

	_, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)

	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.Equal(t, 1, f.idp.AuthenticatePosts())
	require.Zero(t, f.idp.TokenRequests())
	f.requireNothingInstalled(t)
}

func TestLogin_RejectedWithUnauthorizedStatus(t *testing.T) {
	f := setupTestFixture(t, []fakeidp.Option{fakeidp.WithMode(fakeidp.ModeLoginForm)})
	f.idp.UpdateBehaviour(func(b *fakeidp.Behaviour) {
		b.RejectStatus = http.StatusUnauthorized
	})

	_, err := f.client.Login(context.Background(), testUsername, "nope", testRedirectURI)

	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.Equal(t, 1, f.idp.AuthenticatePosts())
}

func TestLogin_ExchangeFailureInstallsNothing(t *testing.T) {
	tests := []struct {
		name      string
		behaviour func(*fakeidp.Behaviour)
		check     func(t *testing.T, err error)
	}{
		{
			name: "provider rejects grant",
			behaviour: func(b *fakeidp.Behaviour) {
				b.TokenErrorStatus = http.StatusBadRequest
				b.TokenErrorCode = "invalid_grant"
			},
			check: func(t *testing.T, err error) {
				var exErr *bootstrap.TokenExchangeError
				require.ErrorAs(t, err, &exErr)
				require.Equal(t, bootstrap.StageExchange, exErr.Stage)
				require.Equal(t, "invalid_grant", exErr.Code)
				require.Equal(t, http.StatusBadRequest, exErr.StatusCode)
			},
		},
		{
			name: "provider unavailable",
			behaviour: func(b *fakeidp.Behaviour) {
				b.TokenErrorStatus = http.StatusServiceUnavailable
				b.TokenErrorCode = "temporarily_unavailable"
			},
			check: func(t *testing.T, err error) {
				var exErr *bootstrap.TokenExchangeError
				require.ErrorAs(t, err, &exErr)
				require.Equal(t, http.StatusServiceUnavailable, exErr.StatusCode)
			},
		},
		{
			name: "access token missing",
			behaviour: func(b *fakeidp.Behaviour) {
				b.OmitAccessToken = true
			},
			check: func(t *testing.T, err error) {
				var missing *bootstrap.MissingTokenError
				require.ErrorAs(t, err, &missing)
				require.Equal(t, bootstrap.StageExchange, missing.Stage)
				require.ElementsMatch(t, []string{"id_token", "refresh_token"}, missing.Present)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, nil)
			f.idp.UpdateBehaviour(tt.behaviour)

			tokens, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
			require.Nil(t, tokens)
			tt.check(t, err)
			f.requireNothingInstalled(t)
		})
	}
}

func TestLogin_StateMismatch(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.idp.UpdateBehaviour(func(b *fakeidp.Behaviour) {
		b.CallbackState = "forged-state"
	})

	_, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)

	var protoErr *bootstrap.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "state mismatch", protoErr.Reason)
	require.Equal(t, bootstrap.StageAuthenticate, protoErr.Stage)
	require.Zero(t, f.idp.TokenRequests())
	f.requireNothingInstalled(t)
}

func TestLogin_RedirectWithoutCode(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.idp.UpdateBehaviour(func(b *fakeidp.Behaviour) {
		b.OmitCode = true
	})

	_, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)

	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.RedirectTarget, "https://app.example.com/logineko/map?")
	require.Equal(t, http.StatusFound, authErr.StatusCode)
}

func TestLogin_InvalidArguments(t *testing.T) {
	f := setupTestFixture(t, nil)

	tests := []struct {
		name        string
		username    string
		password    string
		redirectURI string
	}{
		{name: "empty username", password: testPassword, redirectURI: testRedirectURI},
		{name: "empty password", username: testUsername, redirectURI: testRedirectURI},
		{name: "relative redirect", username: testUsername, password: testPassword, redirectURI: "/logineko/map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.Login(context.Background(), tt.username, tt.password, tt.redirectURI)
			require.ErrorIs(t, err, bootstrap.ErrInvalidArgument)
		})
	}
	require.Zero(t, f.idp.AuthenticatePosts())
}

func TestLogin_WithoutDestinationReturnsTokensOnly(t *testing.T) {
	f := setupTestFixture(t, nil)
	client, err := bootstrap.NewClient(testConfig(f.srv.URL))
	require.NoError(t, err)

	tokens, err := client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	f.requireNothingInstalled(t)
}

func TestLogin_CookieDomainOverride(t *testing.T) {
	f := setupTestFixture(t, nil)
	cfg := testConfig(f.srv.URL)
	cfg.CookieDomain = "app.example.com"
	client, err := bootstrap.NewClient(cfg, bootstrap.WithDestination(f.dest))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
	require.NoError(t, err)

	session, ok := f.dest.Cookie(bootstrap.CookieSession)
	require.True(t, ok)
	require.Equal(t, "app.example.com", session.Domain)
}

func TestLogin_VerifiesIDToken(t *testing.T) {
	f := setupTestFixture(t, nil, bootstrap.WithIDTokenVerification(true))

	tokens, err := f.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
	require.NoError(t, err)

	idToken, err := f.client.VerifyIDToken(context.Background(), tokens.IDToken)
	require.NoError(t, err)
	require.Equal(t, f.srv.URL+"/realms/logineko", idToken.Issuer)
	require.Contains(t, idToken.Audience, fakeidp.DefaultClientID)

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
	}
	require.NoError(t, idToken.Claims(&claims))
	require.Equal(t, testUsername, claims.PreferredUsername)
}

func TestVerifyIDToken_Rejects(t *testing.T) {
	f := setupTestFixture(t, nil)
	other := setupTestFixture(t, nil)

	foreign, err := other.client.Login(context.Background(), testUsername, testPassword, testRedirectURI)
	require.NoError(t, err)

	tests := []struct {
		name    string
		idToken string
	}{
		{name: "missing", idToken: ""},
		{name: "malformed", idToken: "not.a.jwt"},
		{name: "signed by another realm", idToken: foreign.IDToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.VerifyIDToken(context.Background(), tt.idToken)
			var exErr *bootstrap.TokenExchangeError
			require.ErrorAs(t, err, &exErr)
			require.Equal(t, bootstrap.StageVerify, exErr.Stage)
		})
	}
}
