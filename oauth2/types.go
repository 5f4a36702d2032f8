package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code. It is the only response
	// type a headless bootstrap client can complete without running page scripts.
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a single-use authorization code for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new token set.
	RefreshTokenGrant GrantType = "refresh_token"
)

// ScopeOpenID is the only scope the bootstrap flow asks for.
const ScopeOpenID = "openid"

// Query and form parameter names shared by the client and the fake provider.
const (
	ParamClientID     = "client_id"
	ParamRedirectURI  = "redirect_uri"
	ParamResponseType = "response_type"
	ParamScope        = "scope"
	ParamState        = "state"
	ParamCode         = "code"
	ParamGrantType    = "grant_type"
	ParamRefreshToken = "refresh_token"
	ParamError        = "error"
	ParamErrorDesc    = "error_description"
	ParamSessionState = "session_state"
	ParamUsername     = "username"
	ParamPassword     = "password"
)

// Keycloak login-action correlation parameters. They are issued by the
// provider when the login form is rendered and are only valid for one attempt.
const (
	ParamSessionCode = "session_code"
	ParamExecution   = "execution"
	ParamTabID       = "tab_id"
	ParamClientData  = "client_data"
)
