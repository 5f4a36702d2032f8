package config

import (
	"net/url"
	"os"
	"strings"

	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
)

const (
	environmentVar  = "ENVIRONMENT"
	authBaseURLVar  = "AUTH_BASE_URL"
	realmVar        = "AUTH_REALM"
	clientIDVar     = "AUTH_CLIENT_ID"
	appURLVar       = "APP_URL"
	cookieDomainVar = "COOKIE_DOMAIN"
	usernameVar     = "TEST_USERNAME"
	passwordVar     = "TEST_PASSWORD"
	userAgentVar    = "AUTH_USER_AGENT"
	profilesFileVar = "AUTH_PROFILES_FILE"
)

// DefaultUserAgent mimics a desktop Chrome. Keycloak serves a different login
// flow to clients it does not recognise as browsers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

type EnvVars struct {
	profiles Profiles
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetEnvironment() string {
	return strings.ToLower(GetEnv(environmentVar, DefaultEnvironment))
}

func (e EnvVars) profile() Profile {
	return e.profiles.Lookup(e.GetEnvironment())
}

func (e EnvVars) GetAuthBaseURL() string {
	return strings.TrimSuffix(GetEnv(authBaseURLVar, e.profile().AuthBaseURL), "/")
}

func (e EnvVars) GetRealm() string {
	return GetEnv(realmVar, e.profile().Realm)
}

func (e EnvVars) GetClientID() string {
	return GetEnv(clientIDVar, e.profile().ClientID)
}

// GetAppURL returns the application base URL, e.g. "https://app.example.com/logineko".
func (e EnvVars) GetAppURL() string {
	return strings.TrimSuffix(GetEnv(appURLVar, e.profile().AppURL), "/")
}

// GetCookieDomain returns an explicit cookie domain. Empty means the domain is
// derived from the redirect URI at install time.
func (e EnvVars) GetCookieDomain() string {
	return GetEnv(cookieDomainVar, e.profile().CookieDomain)
}

func (e EnvVars) GetTestUsername() string {
	return GetEnv(usernameVar, e.profile().Username)
}

// GetTestPassword is only ever read from the environment.
func (EnvVars) GetTestPassword() string {
	return GetEnv(passwordVar, "")
}

func (EnvVars) GetUserAgent() string {
	return GetEnv(userAgentVar, DefaultUserAgent)
}

// Validate checks the values a login attempt cannot do without.
func (c mainConfig) Validate() error {
	if !c.EnvVars.profiles.Has(c.GetEnvironment()) {
		return apperrors.Wrapf(apperrors.ErrUnknownEnv, "%s=%s", environmentVar, c.GetEnvironment())
	}
	required := []struct {
		name  string
		value string
	}{
		{authBaseURLVar, c.GetAuthBaseURL()},
		{realmVar, c.GetRealm()},
		{clientIDVar, c.GetClientID()},
		{appURLVar, c.GetAppURL()},
	}
	for _, r := range required {
		if r.value == "" {
			return apperrors.Wrapf(apperrors.ErrMissingConfig, "%s", r.name)
		}
	}
	for _, u := range []struct {
		name  string
		value string
	}{{authBaseURLVar, c.GetAuthBaseURL()}, {appURLVar, c.GetAppURL()}} {
		parsed, err := url.Parse(u.value)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s=%q is not an absolute URL", u.name, u.value)
		}
	}
	return c.Timeouts.validate()
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
