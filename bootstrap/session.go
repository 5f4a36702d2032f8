package bootstrap

import (
	"net/http"

	"github.com/logineko/wms-e2e-auth/internal/utils"
	"github.com/logineko/wms-e2e-auth/oauth2"
)

// Fork identifies how the login form parameters were obtained during Initiate.
type Fork string

const (
	// ForkRedirect means the authorize endpoint answered with a redirect whose
	// target carried the form parameters.
	ForkRedirect Fork = "redirect"

	// ForkLoginForm means the authorize endpoint rendered the login form and
	// the parameters were scraped from its action URL.
	ForkLoginForm Fork = "login-form"
)

// AuthSession is the transient state of one login attempt. It is never shared
// between attempts and is useless once its code has been exchanged.
type AuthSession struct {
	Realm       string
	ClientID    string
	RedirectURI string
	State       string

	Fork Fork

	// Correlation parameters issued with the login form.
	SessionCode string
	Execution   string
	TabID       string
	ClientData  string

	// AuthorizationCode is set by Authenticate and cleared by Exchange.
	AuthorizationCode string

	exchanged bool
	http      *http.Client // per-attempt client with its own cookie jar
}

// Exchanged reports whether the session's code has already been sent to the
// token endpoint.
func (s *AuthSession) Exchanged() bool {
	return s.exchanged
}

// TokenSet is the outcome of a successful exchange or refresh. AccessToken is
// never empty in a TokenSet returned by this package.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
	SessionState     string `json:"session_state,omitempty"`
}

func tokenSetFromResponse(tr *oauth2.TokenResponse) *TokenSet {
	return &TokenSet{
		AccessToken:      utils.Deref(tr.AccessToken),
		RefreshToken:     utils.Deref(tr.RefreshToken),
		IDToken:          utils.Deref(tr.IdToken),
		TokenType:        tr.TokenType,
		ExpiresIn:        tr.ExpiresIn,
		RefreshExpiresIn: tr.RefreshExpiresIn,
		Scope:            tr.Scope,
		SessionState:     tr.SessionState,
	}
}
