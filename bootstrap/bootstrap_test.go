package bootstrap_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/internal/fakeidp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUsername    = "e2e_tester"
	testPassword    = "Valid-Passw0rd"
	testRedirectURI = "https://app.example.com/logineko/map"
	testAppOrigin   = "https://app.example.com"
)

// testFixture wires a client to an in-process fake Keycloak.
type testFixture struct {
	idp    *fakeidp.Server
	srv    *httptest.Server
	dest   *browser.Memory
	client *bootstrap.Client
}

func setupTestFixture(t *testing.T, idpOptions []fakeidp.Option, clientOptions ...bootstrap.Option) *testFixture {
	t.Helper()

	logger := zerolog.New(zerolog.NewTestWriter(t))
	idp, err := fakeidp.New(append([]fakeidp.Option{fakeidp.WithLogger(logger)}, idpOptions...)...)
	require.NoError(t, err)
	_, err = idp.AddUser(fakeidp.User{
		Username:      testUsername,
		Email:         "e2e_tester@example.com",
		EmailVerified: true,
		FirstName:     "E2E",
		LastName:      "Tester",
		Groups:        []string{"warehouse", "receiving"},
	}, testPassword)
	require.NoError(t, err)

	srv := httptest.NewServer(idp)
	t.Cleanup(srv.Close)

	dest := browser.NewMemory()
	options := append([]bootstrap.Option{
		bootstrap.WithLogger(logger),
		bootstrap.WithDestination(dest),
	}, clientOptions...)

	client, err := bootstrap.NewClient(testConfig(srv.URL), options...)
	require.NoError(t, err)

	return &testFixture{idp: idp, srv: srv, dest: dest, client: client}
}

func testConfig(baseURL string) bootstrap.Config {
	return bootstrap.Config{
		AuthBaseURL:         baseURL,
		Realm:               fakeidp.DefaultRealm,
		ClientID:            fakeidp.DefaultClientID,
		InitiateTimeout:     5 * time.Second,
		AuthenticateTimeout: 5 * time.Second,
		ExchangeTimeout:     5 * time.Second,
	}
}

// requireNothingInstalled checks that no session artifact reached the destination.
func (f *testFixture) requireNothingInstalled(t *testing.T) {
	t.Helper()
	require.Empty(t, f.dest.Cookies())
	require.Zero(t, f.dest.StorageLen())
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  bootstrap.Config
	}{
		{name: "relative base URL", cfg: bootstrap.Config{AuthBaseURL: "/auth", Realm: "r", ClientID: "c"}},
		{name: "missing realm", cfg: bootstrap.Config{AuthBaseURL: "https://auth.example.com", ClientID: "c"}},
		{name: "missing client", cfg: bootstrap.Config{AuthBaseURL: "https://auth.example.com", Realm: "r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bootstrap.NewClient(tt.cfg)
			require.ErrorIs(t, err, bootstrap.ErrInvalidArgument)
		})
	}
}

func TestRealmEndpoints(t *testing.T) {
	e := bootstrap.RealmEndpoints("https://auth.e2e.gcp.logineko.com/", "logineko")
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko", e.Issuer)
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko/protocol/openid-connect/auth", e.Auth)
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko/login-actions/authenticate", e.Authenticate)
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko/protocol/openid-connect/token", e.Token)
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko/protocol/openid-connect/userinfo", e.UserInfo)
	require.Equal(t, "https://auth.e2e.gcp.logineko.com/realms/logineko/protocol/openid-connect/certs", e.JWKS)
}
