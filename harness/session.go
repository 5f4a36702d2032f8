package harness

import (
	"context"
	"net/http"
	"strings"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/internal/config"
	autherrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MapPath is the application page suites land on after login.
const MapPath = "/map"

// SetupAuthenticatedSession logs the configured test user in and installs the
// session into dest, redirecting to the application's map page. A failed
// attempt is retried with a fresh attempt up to the configured retry count,
// except when the credentials were rejected or the input is unusable.
func SetupAuthenticatedSession(ctx context.Context, cfg config.Config, dest browser.Context, options ...bootstrap.Option) (*bootstrap.TokenSet, error) {
	username, password := cfg.GetTestUsername(), cfg.GetTestPassword()
	if username == "" || password == "" {
		return nil, errors.Wrap(autherrors.ErrMissingCredentials, "[SetupAuthenticatedSession] TEST_USERNAME and TEST_PASSWORD are required")
	}
	appURL := cfg.GetAppURL()
	if appURL == "" {
		return nil, errors.Wrap(autherrors.ErrMissingConfig, "[SetupAuthenticatedSession] APP_URL is required")
	}

	client, err := bootstrap.NewClient(bootstrap.ConfigFromEnv(cfg), append(options, bootstrap.WithDestination(dest))...)
	if err != nil {
		return nil, errors.Wrap(err, "[SetupAuthenticatedSession] bootstrap.NewClient")
	}

	mapURL := appURL + MapPath
	attempts := cfg.GetRetries() + 1
	for attempt := 1; ; attempt++ {
		tokens, err := client.Login(ctx, username, password, mapURL)
		if err == nil {
			return tokens, nil
		}
		if attempt >= attempts || !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("attempts", attempts).Msg("login attempt failed, starting a new one")
	}
}

// retryable reports whether a fresh login attempt could succeed where err
// failed.
func retryable(err error) bool {
	var authErr *bootstrap.AuthenticationError
	var installErr *bootstrap.InstallError
	switch {
	case errors.Is(err, bootstrap.ErrInvalidArgument):
		return false
	case errors.As(err, &authErr), errors.As(err, &installErr):
		return false
	}
	return true
}

// IsAuthenticated requests appURL without following redirects. The session is
// considered valid unless the application sends the browser to the identity
// provider.
func IsAuthenticated(ctx context.Context, hc *http.Client, appURL, authBaseURL string) (bool, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	probe := &http.Client{
		Transport: hc.Transport,
		Jar:       hc.Jar,
		Timeout:   hc.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, appURL, nil)
	if err != nil {
		return false, errors.Wrap(err, "[IsAuthenticated] building request")
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")

	resp, err := probe.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "[IsAuthenticated] request failed")
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return true, nil
	}
	if target, err := resp.Location(); err == nil {
		location = target.String()
	}
	return !strings.Contains(location, strings.TrimSuffix(authBaseURL, "/")), nil
}
