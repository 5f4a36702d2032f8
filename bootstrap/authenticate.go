package bootstrap

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logineko/wms-e2e-auth/oauth2"
	"github.com/pkg/errors"
)

// Authenticate submits the credentials for s exactly once. On success the
// session holds the authorization code.
func (c *Client) Authenticate(ctx context.Context, s *AuthSession, username, password string) error {
	if s == nil || s.http == nil {
		return errors.Wrap(ErrInvalidArgument, "[Client.Authenticate] session was not initiated")
	}
	if username == "" || password == "" {
		return errors.Wrap(ErrInvalidArgument, "[Client.Authenticate] username and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthenticateTimeout)
	defer cancel()

	q := url.Values{}
	q.Set(oauth2.ParamSessionCode, s.SessionCode)
	q.Set(oauth2.ParamExecution, s.Execution)
	q.Set(oauth2.ParamClientID, s.ClientID)
	q.Set(oauth2.ParamTabID, s.TabID)
	q.Set(oauth2.ParamClientData, s.ClientData)

	form := url.Values{}
	form.Set(oauth2.ParamUsername, username)
	form.Set(oauth2.ParamPassword, password)

	fail := Failure{Stage: StageAuthenticate, Endpoint: c.endpoints.Authenticate}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Authenticate+"?"+q.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		fail.Err = err
		return &AuthenticationError{Failure: fail}
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "null")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		fail.Err = redactURLError(err)
		return &AuthenticationError{Failure: fail}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	fail.StatusCode = resp.StatusCode

	if !isRedirect(resp.StatusCode) || resp.Header.Get("Location") == "" {
		fail.Snippet = snippet(body)
		return &AuthenticationError{Failure: fail}
	}

	target := resp.Header.Get("Location")
	loc, err := resp.Location()
	if err != nil {
		fail.Err = err
		return &AuthenticationError{Failure: fail, RedirectTarget: target}
	}
	params := loc.Query()
	code := params.Get(oauth2.ParamCode)
	if code == "" {
		return &AuthenticationError{Failure: fail, RedirectTarget: target}
	}
	if params.Get(oauth2.ParamState) != s.State {
		return &ProtocolError{Failure: fail, Reason: "state mismatch"}
	}

	s.AuthorizationCode = code
	c.logger.Debug().
		Str("stage", string(StageAuthenticate)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("authorization code issued")
	return nil
}
