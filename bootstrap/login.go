package bootstrap

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Login runs one complete attempt: initiate, authenticate, exchange and, when
// the client has a destination, install. Each step runs at most once; there
// are no retries. On any failure nothing has been installed.
func (c *Client) Login(ctx context.Context, username, password, redirectURI string) (*TokenSet, error) {
	if username == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[Client.Login] username and password are required")
	}
	if err := validateRedirectURI(redirectURI); err != nil {
		return nil, errors.WithMessage(err, "[Client.Login]")
	}

	start := time.Now()
	s, err := c.Initiate(ctx, redirectURI)
	if err != nil {
		return nil, c.loginFailed(err, username, start)
	}
	if err := c.Authenticate(ctx, s, username, password); err != nil {
		return nil, c.loginFailed(err, username, start)
	}
	tokens, err := c.Exchange(ctx, s)
	if err != nil {
		return nil, c.loginFailed(err, username, start)
	}
	if c.verifyID {
		if _, err := c.VerifyIDToken(ctx, tokens.IDToken); err != nil {
			return nil, c.loginFailed(err, username, start)
		}
	}
	if c.destination != nil {
		if err := c.Install(ctx, c.destination, tokens, redirectURI); err != nil {
			return nil, c.loginFailed(err, username, start)
		}
	}

	c.logger.Info().
		Str("realm", c.cfg.Realm).
		Str("client_id", c.cfg.ClientID).
		Str("username", username).
		Str("fork", string(s.Fork)).
		Bool("installed", c.destination != nil).
		Dur("elapsed", time.Since(start)).
		Msg("login succeeded")
	return tokens, nil
}

func (c *Client) loginFailed(err error, username string, start time.Time) error {
	c.logger.Warn().
		Err(err).
		Str("realm", c.cfg.Realm).
		Str("username", username).
		Dur("elapsed", time.Since(start)).
		Msg("login failed")
	return err
}
