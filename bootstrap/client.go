package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultStepTimeout = 10 * time.Second
	maxBodyBytes       = 1 << 20
	snippetBytes       = 512
)

// Config identifies the realm and client a Client logs into.
type Config struct {
	AuthBaseURL string // e.g. "https://auth.example.com"
	Realm       string
	ClientID    string

	// CookieDomain overrides the domain session cookies are scoped to. Empty
	// means the shared parent domain of the redirect URI's host.
	CookieDomain string

	UserAgent string

	InitiateTimeout     time.Duration
	AuthenticateTimeout time.Duration
	ExchangeTimeout     time.Duration
}

// ConfigFromEnv maps the environment configuration onto a client Config.
func ConfigFromEnv(c config.Config) Config {
	return Config{
		AuthBaseURL:         c.GetAuthBaseURL(),
		Realm:               c.GetRealm(),
		ClientID:            c.GetClientID(),
		CookieDomain:        c.GetCookieDomain(),
		UserAgent:           c.GetUserAgent(),
		InitiateTimeout:     c.GetInitiateTimeout(),
		AuthenticateTimeout: c.GetAuthenticateTimeout(),
		ExchangeTimeout:     c.GetExchangeTimeout(),
	}
}

// Endpoints are the realm URLs the client talks to.
type Endpoints struct {
	Issuer       string
	Auth         string
	Authenticate string
	Token        string
	UserInfo     string
	JWKS         string
}

// RealmEndpoints derives the Keycloak endpoint URLs of a realm.
func RealmEndpoints(authBaseURL, realm string) Endpoints {
	issuer := strings.TrimSuffix(authBaseURL, "/") + "/realms/" + url.PathEscape(realm)
	return Endpoints{
		Issuer:       issuer,
		Auth:         issuer + "/protocol/openid-connect/auth",
		Authenticate: issuer + "/login-actions/authenticate",
		Token:        issuer + "/protocol/openid-connect/token",
		UserInfo:     issuer + "/protocol/openid-connect/userinfo",
		JWKS:         issuer + "/protocol/openid-connect/certs",
	}
}

// Client drives headless logins against one realm. A Client holds no
// per-attempt state and may be used by concurrent Login calls.
type Client struct {
	cfg         Config
	endpoints   Endpoints
	httpClient  *http.Client
	destination browser.Context
	logger      zerolog.Logger
	newState    func() string
	verifyID    bool
	provider    *oidc.Provider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client whose transport all requests use.
// Its redirect policy and cookie jar are never used for login attempts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDestination sets the browser context Login installs sessions into.
// Without one, Login only returns the token set.
func WithDestination(dest browser.Context) Option {
	return func(c *Client) {
		c.destination = dest
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStateGenerator replaces the state generator (primarily for testing).
func WithStateGenerator(gen func() string) Option {
	return func(c *Client) {
		c.newState = gen
	}
}

// WithIDTokenVerification makes Login verify the ID token's signature,
// issuer and audience against the realm before installing anything.
func WithIDTokenVerification(enabled bool) Option {
	return func(c *Client) {
		c.verifyID = enabled
	}
}

// NewClient validates cfg and returns a Client for its realm.
func NewClient(cfg Config, options ...Option) (*Client, error) {
	base, err := url.Parse(cfg.AuthBaseURL)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, errors.Wrapf(ErrInvalidArgument, "[NewClient] auth base URL %q is not absolute", cfg.AuthBaseURL)
	}
	if cfg.Realm == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[NewClient] realm is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[NewClient] client id is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	for _, d := range []*time.Duration{&cfg.InitiateTimeout, &cfg.AuthenticateTimeout, &cfg.ExchangeTimeout} {
		if *d <= 0 {
			*d = defaultStepTimeout
		}
	}

	c := &Client{
		cfg:        cfg,
		endpoints:  RealmEndpoints(cfg.AuthBaseURL, cfg.Realm),
		httpClient: http.DefaultClient,
		logger:     log.Logger,
		newState:   uuid.NewString,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}

	providerCtx := oidc.ClientContext(context.Background(), c.httpClient)
	c.provider = (&oidc.ProviderConfig{
		IssuerURL:   c.endpoints.Issuer,
		AuthURL:     c.endpoints.Auth,
		TokenURL:    c.endpoints.Token,
		UserInfoURL: c.endpoints.UserInfo,
		JWKSURL:     c.endpoints.JWKS,
		Algorithms:  []string{oidc.RS256},
	}).NewProvider(providerCtx)

	return c, nil
}

// Endpoints returns the realm URLs in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// attemptClient returns an HTTP client for a single login attempt: same
// transport, a fresh cookie jar, and redirects surfaced instead of followed.
func (c *Client) attemptClient() (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.attemptClient] cookiejar.New")
	}
	return &http.Client{
		Transport: c.httpClient.Transport,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func readBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return body
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetBytes {
		s = s[:snippetBytes] + "..."
	}
	return s
}

// endpointOf strips the query so diagnostics never echo correlation values.
func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// redactURLError drops the query from the URL a transport error reports.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: endpointOf(ue.URL), Err: ue.Err}
	}
	return err
}
