// Package bootstrap logs a user into a Keycloak realm without a browser and
// hands the resulting session to a browser context.
//
// A login attempt is a fixed sequence of steps, each depending on values the
// previous response carried:
//
//	Initiate      GET  /realms/{realm}/protocol/openid-connect/auth
//	Authenticate  POST /realms/{realm}/login-actions/authenticate
//	Exchange      POST /realms/{realm}/protocol/openid-connect/token
//	Install       cookies + local storage on the destination context
//
// Every step fails fast with a typed error (ProtocolError,
// AuthenticationError, TokenExchangeError, MissingTokenError, InstallError).
// The client never retries: repeated attempts against a real identity
// provider trip brute-force lockouts. Whether to retry is the caller's call.
package bootstrap
