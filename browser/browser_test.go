package browser_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://app.example.com"

func sessionCookie(value string) browser.Cookie {
	return browser.Cookie{
		Name:     "KEYCLOAK_SESSION",
		Value:    value,
		Domain:   ".example.com",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func TestMemory_Cookies(t *testing.T) {
	m := browser.NewMemory()

	require.NoError(t, m.AddCookies(sessionCookie("first")))
	require.NoError(t, m.AddCookies(sessionCookie("authenticated")))

	c, ok := m.Cookie("KEYCLOAK_SESSION")
	require.True(t, ok)
	require.Equal(t, "authenticated", c.Value)
	require.Equal(t, "/", c.Path)
	require.Len(t, m.Cookies(), 1)

	require.Error(t, m.AddCookies(browser.Cookie{Value: "nameless"}))
}

func TestMemory_LocalStorage(t *testing.T) {
	m := browser.NewMemory()

	require.NoError(t, m.SetLocalStorage(testOrigin,
		browser.StorageItem{Name: "access_token", Value: "a"},
		browser.StorageItem{Name: "id_token", Value: "i"},
	))
	v, ok := m.Item(testOrigin, "access_token")
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, 2, m.StorageLen())

	_, ok = m.Item("https://other.example.com", "access_token")
	require.False(t, ok)

	require.Error(t, m.SetLocalStorage("", browser.StorageItem{Name: "x"}))
}

func TestClearAuthState(t *testing.T) {
	m := browser.NewMemory()
	require.NoError(t, m.AddCookies(sessionCookie("authenticated"), browser.Cookie{Name: "other", Value: "1"}))
	require.NoError(t, m.SetLocalStorage(testOrigin, browser.StorageItem{Name: "access_token", Value: "a"}))

	require.NoError(t, m.ClearCookies("KEYCLOAK_SESSION"))
	require.Len(t, m.Cookies(), 1)

	cleared, err := browser.ClearAuthState(m)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Empty(t, m.Cookies())
	require.Zero(t, m.StorageLen())
}

func TestStateFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "state.json")

	sf := browser.NewStateFile(path)
	require.NoError(t, sf.AddCookies(sessionCookie("authenticated")))
	require.NoError(t, sf.SetLocalStorage(testOrigin,
		browser.StorageItem{Name: "refresh_token", Value: "r"},
		browser.StorageItem{Name: "access_token", Value: "a"},
	))
	require.NoError(t, sf.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Cookies []map[string]any `json:"cookies"`
		Origins []struct {
			Origin       string              `json:"origin"`
			LocalStorage []map[string]string `json:"localStorage"`
		} `json:"origins"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Cookies, 1)
	require.Equal(t, "None", doc.Cookies[0]["sameSite"])
	require.Equal(t, float64(-1), doc.Cookies[0]["expires"])
	require.Len(t, doc.Origins, 1)
	require.Equal(t, testOrigin, doc.Origins[0].Origin)
	require.Equal(t, "access_token", doc.Origins[0].LocalStorage[0]["name"])

	loaded, err := browser.LoadStateFile(path)
	require.NoError(t, err)
	c, ok := loaded.Cookie("KEYCLOAK_SESSION")
	require.True(t, ok)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteNoneMode, c.SameSite)

	token, ok := loaded.LookupItem("refresh_token")
	require.True(t, ok)
	require.Equal(t, "r", token)

	_, ok = loaded.LookupItem("id_token")
	require.False(t, ok)
}

func TestLoadStateFile_Missing(t *testing.T) {
	_, err := browser.LoadStateFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
