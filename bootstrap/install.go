package bootstrap

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/logineko/wms-e2e-auth/browser"
	"golang.org/x/net/publicsuffix"
)

// Names of the artifacts written into the destination context.
const (
	CookieIdentity = "KEYCLOAK_IDENTITY"
	CookieSession  = "KEYCLOAK_SESSION"
	SessionMarker  = "authenticated"

	StorageAccessToken  = "access_token"
	StorageRefreshToken = "refresh_token"
	StorageIDToken      = "id_token"
)

// Artifacts are the cookies and storage entries that make a browser context
// look logged in.
type Artifacts struct {
	Cookies []browser.Cookie
	Origin  string
	Storage []browser.StorageItem
}

// BuildArtifacts composes the full artifact set for tokens. Cookies are scoped
// to cookieDomain, or to the redirect host's parent domain when it is empty.
func BuildArtifacts(tokens *TokenSet, redirectURI, cookieDomain string) (Artifacts, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return Artifacts{}, &MissingTokenError{Failure: Failure{Stage: StageInstall}}
	}
	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Artifacts{}, &InstallError{Failure: Failure{Stage: StageInstall, Err: validateRedirectURI(redirectURI)}}
	}
	if cookieDomain == "" {
		cookieDomain = SessionCookieDomain(u.Hostname())
	}

	var a Artifacts
	if tokens.IDToken != "" {
		a.Cookies = append(a.Cookies, browser.Cookie{
			Name:     CookieIdentity,
			Value:    tokens.IDToken,
			Domain:   cookieDomain,
			Path:     "/",
			HTTPOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
	a.Cookies = append(a.Cookies, browser.Cookie{
		Name:     CookieSession,
		Value:    SessionMarker,
		Domain:   cookieDomain,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	a.Origin = u.Scheme + "://" + u.Host
	for _, item := range []browser.StorageItem{
		{Name: StorageAccessToken, Value: tokens.AccessToken},
		{Name: StorageRefreshToken, Value: tokens.RefreshToken},
		{Name: StorageIDToken, Value: tokens.IDToken},
	} {
		if item.Value != "" {
			a.Storage = append(a.Storage, item)
		}
	}
	return a, nil
}

// Install writes the session artifacts for tokens into dest. Nothing is
// written unless tokens is complete. If local storage cannot be written, the
// cookies written just before are removed again when dest supports it.
func (c *Client) Install(ctx context.Context, dest browser.Context, tokens *TokenSet, redirectURI string) error {
	a, err := BuildArtifacts(tokens, redirectURI, c.cfg.CookieDomain)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &InstallError{Failure: Failure{Stage: StageInstall, Err: err}}
	}

	if err := dest.AddCookies(a.Cookies...); err != nil {
		return &InstallError{Failure: Failure{Stage: StageInstall, Err: err}}
	}
	if err := dest.SetLocalStorage(a.Origin, a.Storage...); err != nil {
		installErr := &InstallError{Failure: Failure{Stage: StageInstall, Err: err}}
		if clearer, ok := dest.(browser.Clearer); ok {
			names := make([]string, 0, len(a.Cookies))
			for _, ck := range a.Cookies {
				names = append(names, ck.Name)
			}
			installErr.RolledBack = clearer.ClearCookies(names...) == nil
		}
		return installErr
	}

	c.logger.Debug().
		Str("stage", string(StageInstall)).
		Str("cookie_domain", a.Cookies[0].Domain).
		Str("origin", a.Origin).
		Int("cookies", len(a.Cookies)).
		Int("storage_items", len(a.Storage)).
		Msg("session installed")
	return nil
}

// SessionCookieDomain returns the domain that shares cookies between the
// application host and its sibling hosts: "app.example.com" becomes
// ".example.com". It never widens a cookie to a public suffix; IP addresses
// and single-label hosts are returned unchanged.
func SessionCookieDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	if host == registrable {
		return "." + host
	}
	_, parent, _ := strings.Cut(host, ".")
	return "." + parent
}
