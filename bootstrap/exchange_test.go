package bootstrap_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/stretchr/testify/require"
)

func TestExchange_CodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t, nil)
	ctx := context.Background()

	s, err := f.client.Initiate(ctx, testRedirectURI)
	require.NoError(t, err)
	require.NoError(t, f.client.Authenticate(ctx, s, testUsername, testPassword))
	code := s.AuthorizationCode
	require.NotEmpty(t, code)

	tokens, err := f.client.Exchange(ctx, s)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.True(t, s.Exchanged())
	require.Empty(t, s.AuthorizationCode)

	// The session refuses a second exchange without asking the provider.
	_, err = f.client.Exchange(ctx, s)
	var exErr *bootstrap.TokenExchangeError
	require.ErrorAs(t, err, &exErr)
	require.ErrorIs(t, err, bootstrap.ErrCodeAlreadyExchanged)
	require.Equal(t, 1, f.idp.TokenRequests())

	// The provider rejects the replayed code on its own.
	_, err = f.client.ExchangeCode(ctx, code, testRedirectURI, s.State)
	require.ErrorAs(t, err, &exErr)
	require.Equal(t, "invalid_grant", exErr.Code)
	require.Equal(t, http.StatusBadRequest, exErr.StatusCode)
	require.Equal(t, 2, f.idp.TokenRequests())
}

func TestExchangeCode_ProviderIssuedCodeReplay(t *testing.T) {
	f := setupTestFixture(t, nil)
	ctx := context.Background()

	code, err := f.idp.IssueCode(testUsername, testRedirectURI)
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(ctx, code, testRedirectURI, "state")
	require.NoError(t, err)

	_, err = f.client.ExchangeCode(ctx, code, testRedirectURI, "state")
	var exErr *bootstrap.TokenExchangeError
	require.ErrorAs(t, err, &exErr)
	require.Equal(t, "invalid_grant", exErr.Code)
	require.Equal(t, "Code not valid", exErr.Description)
	require.Contains(t, err.Error(), "invalid_grant")
}

func TestExchange_WithoutCode(t *testing.T) {
	f := setupTestFixture(t, nil)

	s, err := f.client.Initiate(context.Background(), testRedirectURI)
	require.NoError(t, err)

	_, err = f.client.Exchange(context.Background(), s)
	require.ErrorIs(t, err, bootstrap.ErrInvalidArgument)
	require.Zero(t, f.idp.TokenRequests())
}
