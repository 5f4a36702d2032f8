package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logineko/wms-e2e-auth/internal/utils"
	"github.com/logineko/wms-e2e-auth/oauth2"
	"github.com/pkg/errors"
)

// ErrCodeAlreadyExchanged is wrapped by the TokenExchangeError returned when a
// session's code is offered to Exchange a second time.
var ErrCodeAlreadyExchanged = errors.New("authorization code already exchanged")

// Exchange trades the session's authorization code for a token set. The code
// is consumed whatever the outcome; a second call fails without a request.
func (c *Client) Exchange(ctx context.Context, s *AuthSession) (*TokenSet, error) {
	if s == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "[Client.Exchange] nil session")
	}
	if s.exchanged {
		return nil, &TokenExchangeError{Failure: Failure{
			Stage:    StageExchange,
			Endpoint: c.endpoints.Token,
			Err:      ErrCodeAlreadyExchanged,
		}}
	}
	if s.AuthorizationCode == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[Client.Exchange] session has no authorization code")
	}

	code := s.AuthorizationCode
	s.AuthorizationCode = ""
	s.exchanged = true
	return c.ExchangeCode(ctx, code, s.RedirectURI, s.State)
}

// ExchangeCode posts an authorization_code grant to the token endpoint. The
// provider is the judge of whether code is still valid: a replayed code comes
// back as a TokenExchangeError.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, state string) (*TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExchangeTimeout)
	defer cancel()

	form := url.Values{}
	form.Set(oauth2.ParamGrantType, string(oauth2.AuthorizationCodeGrant))
	form.Set(oauth2.ParamClientID, c.cfg.ClientID)
	form.Set(oauth2.ParamCode, code)
	form.Set(oauth2.ParamRedirectURI, redirectURI)
	form.Set(oauth2.ParamState, state)

	fail := Failure{Stage: StageExchange, Endpoint: c.endpoints.Token}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Token, strings.NewReader(form.Encode()))
	if err != nil {
		fail.Err = err
		return nil, &TokenExchangeError{Failure: fail}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		fail.Err = err
		return nil, &TokenExchangeError{Failure: fail}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	fail.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload oauth2.ErrorResponse
		_ = json.Unmarshal(body, &payload)
		fail.Snippet = snippet(body)
		return nil, &TokenExchangeError{Failure: fail, Code: payload.Code, Description: payload.Description}
	}

	var tr oauth2.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		fail.Err = errors.Wrap(err, "decoding token response")
		fail.Snippet = snippet(body)
		return nil, &TokenExchangeError{Failure: fail}
	}
	if !tr.HasAccessToken() {
		return nil, &MissingTokenError{Failure: fail, Present: presentFields(&tr)}
	}

	c.logger.Debug().
		Str("stage", string(StageExchange)).
		Int("status", resp.StatusCode).
		Bool("id_token", utils.NonEmpty(tr.IdToken)).
		Bool("refresh_token", utils.NonEmpty(tr.RefreshToken)).
		Dur("elapsed", time.Since(start)).
		Msg("token set issued")
	return tokenSetFromResponse(&tr), nil
}

// presentFields names the token fields of tr without revealing their values.
func presentFields(tr *oauth2.TokenResponse) []string {
	var present []string
	if utils.NonEmpty(tr.IdToken) {
		present = append(present, "id_token")
	}
	if utils.NonEmpty(tr.RefreshToken) {
		present = append(present, "refresh_token")
	}
	return present
}
