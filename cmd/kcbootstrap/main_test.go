package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/logineko/wms-e2e-auth/internal/fakeidp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupCLIEnv(t *testing.T) string {
	t.Helper()

	idp, err := fakeidp.New(fakeidp.WithLogger(zerolog.New(zerolog.NewTestWriter(t))))
	require.NoError(t, err)
	_, err = idp.AddUser(fakeidp.User{Username: "e2e_tester", Email: "e2e@example.com"}, "Valid-Passw0rd")
	require.NoError(t, err)
	srv := httptest.NewServer(idp)
	t.Cleanup(srv.Close)

	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("AUTH_BASE_URL", srv.URL)
	t.Setenv("AUTH_REALM", fakeidp.DefaultRealm)
	t.Setenv("AUTH_CLIENT_ID", fakeidp.DefaultClientID)
	t.Setenv("APP_URL", "https://app.example.com/logineko")
	t.Setenv("COOKIE_DOMAIN", "")
	t.Setenv("TEST_USERNAME", "e2e_tester")
	t.Setenv("TEST_PASSWORD", "Valid-Passw0rd")
	t.Setenv("HARNESS_RETRIES", "0")
	t.Setenv("AUTH_PROFILES_FILE", "")

	return filepath.Join(t.TempDir(), "state.json")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--quiet", "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginWritesStateFile(t *testing.T) {
	statePath := setupCLIEnv(t)

	out, err := execute(t, "login", "--state", statePath)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as e2e_tester")

	state, err := browser.LoadStateFile(statePath)
	require.NoError(t, err)
	access, ok := state.LookupItem(bootstrap.StorageAccessToken)
	require.True(t, ok)
	require.NotEmpty(t, access)
	marker, ok := state.Cookie(bootstrap.CookieSession)
	require.True(t, ok)
	require.Equal(t, bootstrap.SessionMarker, marker.Value)
}

func TestRefreshUserInfoAndStatus(t *testing.T) {
	statePath := setupCLIEnv(t)
	_, err := execute(t, "login", "--state", statePath)
	require.NoError(t, err)

	before, err := browser.LoadStateFile(statePath)
	require.NoError(t, err)
	oldAccess, _ := before.LookupItem(bootstrap.StorageAccessToken)

	out, err := execute(t, "refresh", "--state", statePath)
	require.NoError(t, err)
	require.Contains(t, out, "refreshed")

	after, err := browser.LoadStateFile(statePath)
	require.NoError(t, err)
	newAccess, _ := after.LookupItem(bootstrap.StorageAccessToken)
	require.NotEqual(t, oldAccess, newAccess)

	out, err = execute(t, "userinfo", "--state", statePath)
	require.NoError(t, err)
	require.Contains(t, out, `"preferred_username": "e2e_tester"`)

	out, err = execute(t, "status", "--state", statePath)
	require.NoError(t, err)
	require.Contains(t, out, "Access token:   true")
	require.Contains(t, out, "Session cookie: true")
}

func TestLoginRejectedCredentials(t *testing.T) {
	statePath := setupCLIEnv(t)
	t.Setenv("TEST_PASSWORD", "wrong")

	_, err := execute(t, "login", "--state", statePath)
	var authErr *bootstrap.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.NoFileExists(t, statePath)
}

func TestStatusWithoutTokens(t *testing.T) {
	statePath := setupCLIEnv(t)
	require.NoError(t, browser.NewStateFile(statePath).Save())

	out, err := execute(t, "status", "--state", statePath)
	require.True(t, errors.Is(err, apperrors.ErrNotAuthenticated))
	require.Contains(t, out, "Access token:   false")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "status", "--log-level", "loud")
	require.Error(t, err)
}
