package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// oauthConfig describes the realm's public client to x/oauth2.
func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoints.Auth,
			TokenURL:  c.endpoints.Token,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      []string{"openid"},
	}
}

// Refresh trades a refresh token for a new token set. When the provider does
// not rotate the refresh token, the one passed in is carried over.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[Client.Refresh] refresh token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, c.refreshError(err)
	}

	tokens := &TokenSet{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		IDToken:          extraString(tok, "id_token"),
		TokenType:        tok.TokenType,
		ExpiresIn:        int(tok.ExpiresIn),
		RefreshExpiresIn: extraInt(tok, "refresh_expires_in"),
		Scope:            extraString(tok, "scope"),
		SessionState:     extraString(tok, "session_state"),
	}
	if tokens.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		tokens.ExpiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}

	c.logger.Debug().
		Str("stage", string(StageRefresh)).
		Bool("rotated", tokens.RefreshToken != refreshToken).
		Dur("elapsed", time.Since(start)).
		Msg("token set refreshed")
	return tokens, nil
}

func (c *Client) refreshError(err error) error {
	fail := Failure{Stage: StageRefresh, Endpoint: c.endpoints.Token, Err: err}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			fail.StatusCode = re.Response.StatusCode
		}
		fail.Snippet = snippet(re.Body)
		return &TokenExchangeError{Failure: fail, Code: re.ErrorCode, Description: re.ErrorDescription}
	}
	if strings.Contains(err.Error(), "missing access_token") {
		fail.Err = nil
		return &MissingTokenError{Failure: fail}
	}
	return &TokenExchangeError{Failure: fail}
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}

func extraInt(tok *oauth2.Token, key string) int {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
