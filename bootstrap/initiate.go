package bootstrap

import (
	"bytes"
	"context"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/logineko/wms-e2e-auth/oauth2"
	"github.com/pkg/errors"
)

const loginActionMarker = "login-actions/authenticate"

// loginFormAction finds the submission target of a rendered Keycloak login
// form. Pattern matching on HTML is fragile; it covers deployments that render
// the form directly instead of redirecting to it.
var loginFormAction = regexp.MustCompile(`action="([^"]*login-actions/authenticate[^"]*)"`)

// Initiate starts a login attempt for redirectURI and collects the login form
// correlation parameters, whichever way the provider hands them out.
func (c *Client) Initiate(ctx context.Context, redirectURI string) (*AuthSession, error) {
	if err := validateRedirectURI(redirectURI); err != nil {
		return nil, err
	}
	hc, err := c.attemptClient()
	if err != nil {
		return nil, err
	}

	s := &AuthSession{
		Realm:       c.cfg.Realm,
		ClientID:    c.cfg.ClientID,
		RedirectURI: redirectURI,
		State:       c.newState(),
		http:        hc,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.InitiateTimeout)
	defer cancel()

	q := url.Values{}
	q.Set(oauth2.ParamClientID, s.ClientID)
	q.Set(oauth2.ParamRedirectURI, s.RedirectURI)
	q.Set(oauth2.ParamResponseType, string(oauth2.CodeResponseType))
	q.Set(oauth2.ParamScope, oauth2.ScopeOpenID)
	q.Set(oauth2.ParamState, s.State)

	fail := Failure{Stage: StageInitiate, Endpoint: c.endpoints.Auth}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Auth+"?"+q.Encode(), nil)
	if err != nil {
		fail.Err = err
		return nil, &ProtocolError{Failure: fail, Reason: "building authorization request"}
	}
	c.setBrowserHeaders(req)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		fail.Err = redactURLError(err)
		return nil, &ProtocolError{Failure: fail, Reason: "authorization request failed"}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	fail.StatusCode = resp.StatusCode

	var params url.Values
	switch {
	case isRedirect(resp.StatusCode) && resp.Header.Get("Location") != "":
		loc, err := resp.Location()
		if err != nil {
			fail.Err = err
			return nil, &ProtocolError{Failure: fail, Reason: "unparseable redirect target", Location: resp.Header.Get("Location")}
		}
		s.Fork = ForkRedirect
		params = loc.Query()
		if params.Get(oauth2.ParamSessionCode) == "" || params.Get(oauth2.ParamExecution) == "" {
			return nil, &ProtocolError{Failure: fail, Reason: "could not extract session parameters", Location: loc.String()}
		}

	case resp.StatusCode == http.StatusOK && bytes.Contains(body, []byte(loginActionMarker)):
		action, ok := scrapeLoginFormAction(body)
		if !ok {
			fail.Snippet = snippet(body)
			return nil, &ProtocolError{Failure: fail, Reason: "no authorization endpoint or login form"}
		}
		s.Fork = ForkLoginForm
		params = action.Query()
		if params.Get(oauth2.ParamSessionCode) == "" || params.Get(oauth2.ParamExecution) == "" {
			return nil, &ProtocolError{Failure: fail, Reason: "could not extract session parameters from login form"}
		}

	default:
		fail.Snippet = snippet(body)
		return nil, &ProtocolError{Failure: fail, Reason: "no authorization endpoint or login form"}
	}

	s.SessionCode = params.Get(oauth2.ParamSessionCode)
	s.Execution = params.Get(oauth2.ParamExecution)
	s.TabID = params.Get(oauth2.ParamTabID)
	s.ClientData = params.Get(oauth2.ParamClientData)

	c.logger.Debug().
		Str("stage", string(StageInitiate)).
		Str("fork", string(s.Fork)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("login form located")
	return s, nil
}

// scrapeLoginFormAction returns the parsed action URL of the login form in body.
func scrapeLoginFormAction(body []byte) (*url.URL, bool) {
	m := loginFormAction.FindSubmatch(body)
	if m == nil {
		return nil, false
	}
	action, err := url.Parse(html.UnescapeString(string(m[1])))
	if err != nil {
		return nil, false
	}
	return action, true
}

func validateRedirectURI(redirectURI string) error {
	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.Wrapf(ErrInvalidArgument, "redirect URI %q is not an absolute URL", redirectURI)
	}
	return nil
}
