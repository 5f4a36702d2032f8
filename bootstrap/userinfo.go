package bootstrap

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/logineko/wms-e2e-auth/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// UserInfo is the profile the realm reports for an access token.
type UserInfo struct {
	Subject           string   `json:"sub"`
	Email             string   `json:"email,omitempty"`
	EmailVerified     bool     `json:"email_verified,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Name              string   `json:"name,omitempty"`
	Groups            []string `json:"groups,omitempty"`

	// Claims holds every claim returned, including the ones above.
	Claims map[string]any `json:"-"`
}

// UserInfo fetches the profile of the user accessToken was issued to.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if accessToken == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "[Client.UserInfo] access token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExchangeTimeout)
	defer cancel()

	info, err := c.provider.UserInfo(oidc.ClientContext(ctx, c.httpClient), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UserInfo] provider.UserInfo")
	}

	claims := map[string]any{}
	if err := info.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[Client.UserInfo] decoding claims")
	}

	u := &UserInfo{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Claims:        claims,
	}
	u.PreferredUsername, _ = claims["preferred_username"].(string)
	u.Name, _ = claims["name"].(string)
	u.Groups = utils.ClaimStrings(claims["groups"])
	return u, nil
}
