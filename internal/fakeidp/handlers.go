package fakeidp

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	autherrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/logineko/wms-e2e-auth/oauth2"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	msgInvalidCredentials = "Invalid username or password."
	msgCookieNotFound     = "Cookie not found. Please make sure cookies are enabled in your browser."
	msgExpiredAction      = "Action expired. Please continue with login now."
)

// Discovery serves the realm's OpenID configuration document.
func (s *Server) Discovery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issuer := s.issuer(r)
		resp := map[string]any{
			"issuer":                                issuer,
			"authorization_endpoint":                issuer + "/protocol/openid-connect/auth",
			"token_endpoint":                        issuer + "/protocol/openid-connect/token",
			"userinfo_endpoint":                     issuer + "/protocol/openid-connect/userinfo",
			"jwks_uri":                              issuer + "/protocol/openid-connect/certs",
			"response_types_supported":              []string{"code"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{RS256},
			"scopes_supported":                      []string{"openid", "profile", "email"},
			"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
			"token_endpoint_auth_methods_supported": []string{"none"},
			"claims_supported": []string{
				"sub", "email", "email_verified", "preferred_username", "name", "groups",
			},
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Certs serves the realm's JSON Web Key Set.
func (s *Server) Certs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.keys.jwks())
	}
}

// Authorize starts a login attempt and hands out the login form, either by
// redirecting to it or by rendering it.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get(oauth2.ParamClientID) != s.clientID {
			s.renderError(w, http.StatusBadRequest, "Client not found.")
			return
		}
		if q.Get(oauth2.ParamResponseType) != string(oauth2.CodeResponseType) {
			s.renderError(w, http.StatusBadRequest, "Invalid parameter: response_type")
			return
		}
		redirectURI, err := url.Parse(q.Get(oauth2.ParamRedirectURI))
		if err != nil || !redirectURI.IsAbs() {
			s.renderError(w, http.StatusBadRequest, "Invalid parameter: redirect_uri")
			return
		}

		as := &authSession{
			ID:          uuid.New().String(),
			ClientID:    s.clientID,
			RedirectURI: redirectURI.String(),
			State:       q.Get(oauth2.ParamState),
			Nonce:       q.Get("nonce"),
			SessionCode: randomToken(),
			Execution:   uuid.New().String(),
			TabID:       randomToken()[:11],
			CreatedAt:   s.now(),
		}
		as.ClientData = clientData(as)
		s.store.upsertAuthSession(as)

		http.SetCookie(w, &http.Cookie{
			Name:     authSessionCookie,
			Value:    as.ID,
			Path:     "/realms/" + s.realm + "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		action := s.loginActionURL(r, as)
		if s.currentBehaviour().Mode == ModeLoginForm {
			s.renderLogin(w, http.StatusOK, action, "", "")
			return
		}
		http.Redirect(w, r, action, http.StatusFound)
	}
}

// LoginPage renders the login form for the attempt in the session cookie.
func (s *Server) LoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		as, ok := s.sessionFromCookie(w, r)
		if !ok {
			return
		}
		s.renderLogin(w, http.StatusOK, s.loginActionURL(r, as), "", "")
	}
}

// Authenticate checks submitted credentials and, on success, redirects to the
// client with a fresh authorization code.
func (s *Server) Authenticate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authenticatePosts++
		b := s.behaviour
		s.mu.Unlock()

		if b.AuthenticateStatus != 0 {
			s.renderError(w, b.AuthenticateStatus, "Authentication failed.")
			return
		}

		as, ok := s.sessionFromCookie(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		if q.Get(oauth2.ParamSessionCode) != as.SessionCode || q.Get(oauth2.ParamExecution) != as.Execution ||
			q.Get(oauth2.ParamClientID) != as.ClientID {
			s.renderError(w, http.StatusBadRequest, msgExpiredAction)
			return
		}
		if err := r.ParseForm(); err != nil {
			s.renderError(w, http.StatusBadRequest, "Invalid request.")
			return
		}

		username := r.PostFormValue(oauth2.ParamUsername)
		user, err := s.store.userByName(username)
		if err != nil || user.Disabled || !user.checkPassword(r.PostFormValue(oauth2.ParamPassword)) {
			status := b.RejectStatus
			if status == 0 {
				status = http.StatusOK
			}
			s.logger.Debug().Str("username", username).Msg("fakeidp rejected credentials")
			s.renderLogin(w, status, s.loginActionURL(r, as), username, msgInvalidCredentials)
			return
		}

		s.store.deleteAuthSession(as.ID)
		grant := &codeGrant{
			Code:         newCode(),
			UserID:       user.ID,
			ClientID:     as.ClientID,
			RedirectURI:  as.RedirectURI,
			Nonce:        as.Nonce,
			SessionState: uuid.New().String(),
			IssuedAt:     s.now(),
		}
		s.store.addCode(grant)

		target, _ := url.Parse(as.RedirectURI)
		rq := target.Query()
		state := as.State
		if b.CallbackState != "" {
			state = b.CallbackState
		}
		rq.Set(oauth2.ParamState, state)
		rq.Set(oauth2.ParamSessionState, grant.SessionState)
		rq.Set("iss", s.issuer(r))
		if !b.OmitCode {
			rq.Set(oauth2.ParamCode, grant.Code)
		}
		target.RawQuery = rq.Encode()
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}

// Token serves the authorization_code and refresh_token grants.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokenRequests++
		b := s.behaviour
		s.mu.Unlock()

		if b.TokenErrorStatus != 0 {
			writeJSONError(w, b.TokenErrorCode, "forced failure", b.TokenErrorStatus)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		if r.PostFormValue(oauth2.ParamClientID) != s.clientID {
			writeJSONError(w, "invalid_client", "Invalid client or Invalid client credentials", http.StatusUnauthorized)
			return
		}

		var (
			tr  *oauth2.TokenResponse
			err error
		)
		switch oauth2.GrantType(r.PostFormValue(oauth2.ParamGrantType)) {
		case oauth2.AuthorizationCodeGrant:
			tr, err = s.codeGrant(r)
		case oauth2.RefreshTokenGrant:
			tr, err = s.refreshTokenGrant(r)
		default:
			writeJSONError(w, "unsupported_grant_type", "Unsupported grant_type", http.StatusBadRequest)
			return
		}
		if err != nil {
			s.logger.Debug().Err(err).Msg("fakeidp rejected token request")
			writeJSONError(w, "invalid_grant", grantErrorDescription(err), http.StatusBadRequest)
			return
		}
		if b.OmitAccessToken {
			tr.AccessToken = nil
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, tr)
	}
}

func (s *Server) codeGrant(r *http.Request) (*oauth2.TokenResponse, error) {
	grant, err := s.store.redeemCode(r.PostFormValue(oauth2.ParamCode))
	if err != nil {
		return nil, err
	}
	if grant.ClientID != r.PostFormValue(oauth2.ParamClientID) {
		return nil, autherrors.ErrInvalidClient
	}
	if grant.RedirectURI != r.PostFormValue(oauth2.ParamRedirectURI) {
		return nil, autherrors.ErrInvalidRedirectURI
	}
	user, err := s.store.userByID(grant.UserID)
	if err != nil {
		return nil, autherrors.Wrapf(err, "user %s", grant.UserID)
	}
	return s.issueTokens(tokenRequest{
		issuer:       s.issuer(r),
		user:         user,
		clientID:     grant.ClientID,
		scope:        "openid profile email",
		nonce:        grant.Nonce,
		sessionState: grant.SessionState,
	})
}

func (s *Server) refreshTokenGrant(r *http.Request) (*oauth2.TokenResponse, error) {
	claims, err := s.verifyToken(r.PostFormValue(oauth2.ParamRefreshToken), typRefresh)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "refresh token: %v", err)
	}
	jti, _ := claims["jti"].(string)
	grant, err := s.store.refreshGrant(jti)
	if err != nil {
		return nil, err
	}
	if grant.ClientID != r.PostFormValue(oauth2.ParamClientID) {
		return nil, autherrors.ErrInvalidClient
	}
	user, err := s.store.userByID(grant.UserID)
	if err != nil {
		return nil, autherrors.Wrapf(err, "user %s", grant.UserID)
	}
	return s.issueTokens(tokenRequest{
		issuer:       s.issuer(r),
		user:         user,
		clientID:     grant.ClientID,
		scope:        grant.Scope,
		sessionState: grant.SessionState,
	})
}

// UserInfo returns the profile of the bearer token's subject.
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			s.bearerError(w, "Missing or invalid Authorization header")
			return
		}
		claims, err := s.verifyToken(parts[1], typBearer)
		if err != nil {
			s.bearerError(w, "Token verification failed")
			return
		}
		sub, _ := claims["sub"].(string)
		user, err := s.store.userByID(sub)
		if err != nil {
			s.bearerError(w, "User not found")
			return
		}

		resp := map[string]any{
			"sub":                user.ID,
			"email":              user.Email,
			"email_verified":     user.EmailVerified,
			"preferred_username": user.Username,
			"name":               user.Name(),
			"given_name":         user.FirstName,
			"family_name":        user.LastName,
		}
		if len(user.Groups) > 0 {
			resp["groups"] = user.Groups
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) sessionFromCookie(w http.ResponseWriter, r *http.Request) (*authSession, bool) {
	cookie, err := r.Cookie(authSessionCookie)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, msgCookieNotFound)
		return nil, false
	}
	as, err := s.store.authSession(cookie.Value)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, msgExpiredAction)
		return nil, false
	}
	return as, true
}

func (s *Server) loginActionURL(r *http.Request, as *authSession) string {
	q := url.Values{}
	q.Set(oauth2.ParamSessionCode, as.SessionCode)
	q.Set(oauth2.ParamExecution, as.Execution)
	q.Set(oauth2.ParamClientID, as.ClientID)
	q.Set(oauth2.ParamTabID, as.TabID)
	q.Set(oauth2.ParamClientData, as.ClientData)
	return s.issuer(r) + "/login-actions/authenticate?" + q.Encode()
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, action, username, message string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store, must-revalidate, max-age=0")
	w.WriteHeader(status)
	_ = s.loginPage.Execute(w, map[string]any{
		"Realm":    s.realm,
		"Action":   action,
		"Username": username,
		"Error":    message,
	})
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_ = s.errorPage.Execute(w, map[string]any{
		"Realm":   s.realm,
		"Message": message,
	})
}

func (s *Server) bearerError(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+s.realm+`", error="invalid_token", error_description="`+description+`"`)
	writeJSONError(w, "invalid_token", description, http.StatusUnauthorized)
}

// grantErrorDescription maps store errors onto Keycloak's descriptions.
func grantErrorDescription(err error) string {
	switch {
	case autherrors.Is(err, autherrors.ErrCodeAlreadyExchanged), autherrors.Is(err, autherrors.ErrInvalidGrant):
		return "Code not valid"
	case autherrors.Is(err, autherrors.ErrInvalidRedirectURI):
		return "Incorrect redirect_uri"
	case autherrors.Is(err, autherrors.ErrInvalidClient):
		return "Token client and authorized client don't match"
	case autherrors.Is(err, autherrors.ErrInvalidToken):
		return "Invalid refresh token"
	}
	return err.Error()
}

// clientData is the base64url JSON blob newer Keycloak versions attach to
// login actions.
func clientData(as *authSession) string {
	raw, _ := json.Marshal(map[string]string{
		"ru": as.RedirectURI,
		"rt": string(oauth2.CodeResponseType),
		"st": as.State,
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func randomToken() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{Code: errorCode, Description: description})
}
