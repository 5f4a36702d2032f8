// Package fakeidp is an in-process identity provider that speaks the subset of
// the Keycloak protocol the bootstrap client uses. Tests mount it on an
// httptest server and steer its behaviour to reproduce provider quirks and
// failures.
package fakeidp

import (
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoginMode selects how the authorization endpoint hands out the login form.
type LoginMode string

const (
	// ModeRedirect answers the authorization request with a redirect to the
	// login action URL.
	ModeRedirect LoginMode = "redirect"

	// ModeLoginForm renders the login form directly.
	ModeLoginForm LoginMode = "login-form"
)

const (
	DefaultRealm    = "logineko"
	DefaultClientID = "frontend-vue"

	authSessionCookie = "AUTH_SESSION_ID"
)

// Behaviour holds the switches tests flip to reproduce provider behaviour.
type Behaviour struct {
	Mode LoginMode

	// RejectStatus is the status used when credentials are rejected. Zero
	// re-renders the login form with 200, as Keycloak does.
	RejectStatus int

	// AuthenticateStatus, when set, is returned for every credential POST
	// regardless of the credentials.
	AuthenticateStatus int

	// CallbackState replaces the state echoed back on the code redirect.
	CallbackState string

	// OmitCode drops the code from the redirect after a valid login.
	OmitCode bool

	// OmitAccessToken drops access_token from successful token responses.
	OmitAccessToken bool

	// TokenErrorStatus, when set, fails every token request with
	// TokenErrorCode.
	TokenErrorStatus int
	TokenErrorCode   string
}

// Server is a single-realm fake Keycloak.
type Server struct {
	realm    string
	clientID string

	accessTTL  time.Duration
	refreshTTL time.Duration

	mux       *http.ServeMux
	routes    []string
	keys      *keyPair
	store     *store
	logger    zerolog.Logger
	now       func() time.Time
	loginPage *template.Template
	errorPage *template.Template

	mu                sync.Mutex
	behaviour         Behaviour
	authenticatePosts int
	tokenRequests     int
}

// Option configures a Server.
type Option func(*Server)

func WithRealm(realm string) Option {
	return func(s *Server) {
		s.realm = realm
	}
}

func WithClientID(clientID string) Option {
	return func(s *Server) {
		s.clientID = clientID
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMode sets the initial login mode.
func WithMode(mode LoginMode) Option {
	return func(s *Server) {
		s.behaviour.Mode = mode
	}
}

// WithTokenLifetimes sets the access and refresh token lifetimes.
func WithTokenLifetimes(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// New creates a provider with a fresh RS256 signing key and no users.
func New(options ...Option) (*Server, error) {
	s := &Server{
		realm:      DefaultRealm,
		clientID:   DefaultClientID,
		accessTTL:  5 * time.Minute,
		refreshTTL: 30 * time.Minute,
		mux:        http.NewServeMux(),
		store:      newStore(),
		logger:     log.Logger,
		now:        time.Now,
		behaviour:  Behaviour{Mode: ModeRedirect},
	}
	for _, opt := range options {
		opt(s)
	}

	keys, err := generateKeyPair(uuid.New().String(), 2048)
	if err != nil {
		return nil, errors.Wrap(err, "[fakeidp.New]")
	}
	s.keys = keys

	if s.loginPage, err = template.ParseFS(templateFS, "templates/login.html"); err != nil {
		return nil, errors.Wrap(err, "[fakeidp.New] login template")
	}
	if s.errorPage, err = template.ParseFS(templateFS, "templates/error.html"); err != nil {
		return nil, errors.Wrap(err, "[fakeidp.New] error template")
	}

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Realm returns the realm name served.
func (s *Server) Realm() string {
	return s.realm
}

// ClientID returns the only client the realm knows.
func (s *Server) ClientID() string {
	return s.clientID
}

// Routes returns the registered route patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// AddUser creates or replaces an account with the given password.
func (s *Server) AddUser(user User, password string) (*User, error) {
	if user.Username == "" {
		return nil, errors.New("[Server.AddUser] username is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.AddUser] hashPassword")
	}
	u := user
	u.passwordHash = hash
	s.store.upsertUser(&u)
	return &u, nil
}

// IssueCode issues an authorization code for username as a successful login
// would, without going through the login form.
func (s *Server) IssueCode(username, redirectURI string) (string, error) {
	user, err := s.store.userByName(username)
	if err != nil {
		return "", errors.Wrapf(err, "[Server.IssueCode] user %q", username)
	}
	grant := &codeGrant{
		Code:         newCode(),
		UserID:       user.ID,
		ClientID:     s.clientID,
		RedirectURI:  redirectURI,
		SessionState: uuid.New().String(),
		IssuedAt:     s.now(),
	}
	s.store.addCode(grant)
	return grant.Code, nil
}

// SetBehaviour replaces the current behaviour switches.
func (s *Server) SetBehaviour(b Behaviour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Mode == "" {
		b.Mode = ModeRedirect
	}
	s.behaviour = b
}

// UpdateBehaviour changes the behaviour switches in place.
func (s *Server) UpdateBehaviour(update func(*Behaviour)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.behaviour)
}

func (s *Server) currentBehaviour() Behaviour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.behaviour
}

// AuthenticatePosts returns how many credential submissions were received.
func (s *Server) AuthenticatePosts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticatePosts
}

// TokenRequests returns how many token endpoint requests were received.
func (s *Server) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

func (s *Server) tokenLifetimes() (time.Duration, time.Duration) {
	return s.accessTTL, s.refreshTTL
}

// issuer is the realm URL as seen by the client that sent r.
func (s *Server) issuer(r *http.Request) string {
	return getScheme(r) + "://" + r.Host + "/realms/" + s.realm
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// newCode mimics the shape of Keycloak codes.
func newCode() string {
	return uuid.New().String() + "." + uuid.New().String() + "." + uuid.New().String()
}
