package oauth2

import (
	"fmt"

	"github.com/logineko/wms-e2e-auth/internal/utils"
)

// TokenResponse is the body returned by a Keycloak token endpoint for the
// authorization_code and refresh_token grants.
// Pointer fields distinguish "absent" from "empty" so a response without an
// access token can be rejected instead of silently accepted.
type TokenResponse struct {
	// AccessToken is the bearer token presented to the application APIs.
	AccessToken *string `json:"access_token,omitempty"`

	// IdToken is the OpenID Connect ID token. Keycloak only issues it when the
	// "openid" scope was requested.
	IdToken *string `json:"id_token,omitempty"`

	// RefreshToken can be exchanged for a new token set at the token endpoint.
	RefreshToken *string `json:"refresh_token,omitempty"`

	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. It is a hint only,
	// expiry is not tracked locally.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshExpiresIn is Keycloak's refresh token lifetime in seconds.
	RefreshExpiresIn int `json:"refresh_expires_in,omitempty"`

	Scope        string `json:"scope,omitempty"`
	SessionState string `json:"session_state,omitempty"`
}

// HasAccessToken reports whether the response carries a usable access token.
func (tr *TokenResponse) HasAccessToken() bool {
	return tr != nil && utils.NonEmpty(tr.AccessToken)
}

// ErrorResponse is the RFC 6749 error payload returned by the token and
// userinfo endpoints.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e ErrorResponse) String() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
