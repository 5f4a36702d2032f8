// Package browser models the destination execution context a bootstrapped
// session is installed into: cookies scoped to a domain and local storage
// scoped to an origin.
package browser

import (
	"net/http"
	"time"
)

// Cookie is a browser cookie as a test runner would set it.
type Cookie struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Domain   string        `json:"domain"`
	Path     string        `json:"path"`
	Expires  time.Time     `json:"-"`
	HTTPOnly bool          `json:"httpOnly"`
	Secure   bool          `json:"secure"`
	SameSite http.SameSite `json:"-"`
}

// StorageItem is a single local storage entry.
type StorageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Context receives session artifacts.
type Context interface {
	AddCookies(cookies ...Cookie) error
	SetLocalStorage(origin string, items ...StorageItem) error
}

// Clearer is implemented by contexts that can drop previously written state.
type Clearer interface {
	// ClearCookies removes the named cookies, or every cookie when no name is given.
	ClearCookies(names ...string) error
	// ClearLocalStorage removes every entry of origin, or of every origin when origin is empty.
	ClearLocalStorage(origin string) error
}

// ClearAuthState empties cookies and local storage of ctx when it supports
// clearing. It reports whether anything was attempted.
func ClearAuthState(ctx Context) (bool, error) {
	c, ok := ctx.(Clearer)
	if !ok {
		return false, nil
	}
	if err := c.ClearCookies(); err != nil {
		return true, err
	}
	return true, c.ClearLocalStorage("")
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteNoneMode:
		return "None"
	case http.SameSiteStrictMode:
		return "Strict"
	default:
		return "Lax"
	}
}

func parseSameSite(name string) http.SameSite {
	switch name {
	case "None":
		return http.SameSiteNoneMode
	case "Strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
