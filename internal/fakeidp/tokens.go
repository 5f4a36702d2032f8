package fakeidp

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/logineko/wms-e2e-auth/internal/utils"
	"github.com/logineko/wms-e2e-auth/oauth2"
)

// Keycloak token "typ" claims.
const (
	typBearer  = "Bearer"
	typID      = "ID"
	typRefresh = "Refresh"
)

// tokenRequest carries what the token endpoint knows about the grant.
type tokenRequest struct {
	issuer       string
	user         *User
	clientID     string
	scope        string
	nonce        string
	sessionState string
}

// issueTokens creates the access, ID and refresh tokens for req and records
// the refresh token.
func (s *Server) issueTokens(req tokenRequest) (*oauth2.TokenResponse, error) {
	now := s.now()
	accessTTL, refreshTTL := s.tokenLifetimes()

	access, err := s.keys.sign(jwtlib.MapClaims{
		"iss":                req.issuer,
		"sub":                req.user.ID,
		"aud":                "account",
		"azp":                req.clientID,
		"typ":                typBearer,
		"scope":              req.scope,
		"sid":                req.sessionState,
		"session_state":      req.sessionState,
		"preferred_username": req.user.Username,
		"email":              req.user.Email,
		"iat":                now.Unix(),
		"exp":                now.Add(accessTTL).Unix(),
		"jti":                uuid.New().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("[issueTokens] access token: %w", err)
	}

	idClaims := jwtlib.MapClaims{
		"iss":                req.issuer,
		"sub":                req.user.ID,
		"aud":                req.clientID,
		"azp":                req.clientID,
		"typ":                typID,
		"sid":                req.sessionState,
		"preferred_username": req.user.Username,
		"email":              req.user.Email,
		"email_verified":     req.user.EmailVerified,
		"name":               req.user.Name(),
		"iat":                now.Unix(),
		"exp":                now.Add(accessTTL).Unix(),
		"auth_time":          now.Unix(),
		"jti":                uuid.New().String(),
	}
	if req.nonce != "" {
		idClaims["nonce"] = req.nonce
	}
	id, err := s.keys.sign(idClaims)
	if err != nil {
		return nil, fmt.Errorf("[issueTokens] id token: %w", err)
	}

	refreshID := uuid.New().String()
	refresh, err := s.keys.sign(jwtlib.MapClaims{
		"iss":   req.issuer,
		"sub":   req.user.ID,
		"aud":   req.issuer,
		"azp":   req.clientID,
		"typ":   typRefresh,
		"sid":   req.sessionState,
		"scope": req.scope,
		"iat":   now.Unix(),
		"exp":   now.Add(refreshTTL).Unix(),
		"jti":   refreshID,
	})
	if err != nil {
		return nil, fmt.Errorf("[issueTokens] refresh token: %w", err)
	}
	s.store.addRefresh(refreshID, refreshGrant{
		UserID:       req.user.ID,
		ClientID:     req.clientID,
		SessionState: req.sessionState,
		Scope:        req.scope,
	})

	return &oauth2.TokenResponse{
		AccessToken:      utils.Ptr(access),
		IdToken:          utils.Ptr(id),
		RefreshToken:     utils.Ptr(refresh),
		TokenType:        typBearer,
		ExpiresIn:        int(accessTTL / time.Second),
		RefreshExpiresIn: int(refreshTTL / time.Second),
		Scope:            req.scope,
		SessionState:     req.sessionState,
	}, nil
}

// verifyToken checks raw against the realm key and expects the given typ.
func (s *Server) verifyToken(raw, typ string) (jwtlib.MapClaims, error) {
	claims, err := s.keys.parse(raw, s.now)
	if err != nil {
		return nil, err
	}
	if got, _ := claims["typ"].(string); got != typ {
		return nil, fmt.Errorf("token type %q, want %q", got, typ)
	}
	return claims, nil
}
