package bootstrap

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// ErrMissingIDToken is wrapped when ID token verification is requested for a
// token set that has none.
var ErrMissingIDToken = errors.New("id_token missing from token set")

// VerifyIDToken checks the signature of rawIDToken against the realm's JWKS
// along with its issuer, audience and expiry.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	fail := Failure{Stage: StageVerify, Endpoint: c.endpoints.JWKS}
	if rawIDToken == "" {
		fail.Err = ErrMissingIDToken
		return nil, &TokenExchangeError{Failure: fail}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExchangeTimeout)
	defer cancel()

	verifier := c.provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID})
	idToken, err := verifier.Verify(oidc.ClientContext(ctx, c.httpClient), rawIDToken)
	if err != nil {
		fail.Err = err
		return nil, &TokenExchangeError{Failure: fail}
	}

	c.logger.Debug().
		Str("stage", string(StageVerify)).
		Str("subject", idToken.Subject).
		Time("expiry", idToken.Expiry).
		Msg("id token verified")
	return idToken, nil
}
