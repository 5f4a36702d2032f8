package main

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/harness"
	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/net/publicsuffix"
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the storage-state file holds a usable session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := browser.LoadStateFile(flags.stateFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			_, hasAccess := state.LookupItem(bootstrap.StorageAccessToken)
			_, hasRefresh := state.LookupItem(bootstrap.StorageRefreshToken)
			marker, hasMarker := state.Cookie(bootstrap.CookieSession)
			fmt.Fprintf(out, "State file:     %s\n", state.Path())
			fmt.Fprintf(out, "Access token:   %t\n", hasAccess)
			fmt.Fprintf(out, "Refresh token:  %t\n", hasRefresh)
			fmt.Fprintf(out, "Session cookie: %t\n", hasMarker && marker.Value == bootstrap.SessionMarker)
			if !hasAccess {
				return errors.Wrap(apperrors.ErrNotAuthenticated, "no access token stored")
			}
			if !probe {
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			hc, err := probeClient(state, cfg.GetAppURL())
			if err != nil {
				return err
			}
			ok, err := harness.IsAuthenticated(cmd.Context(), hc, cfg.GetAppURL()+harness.MapPath, cfg.GetAuthBaseURL())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Application:    %t\n", ok)
			if !ok {
				return errors.Wrap(apperrors.ErrNotAuthenticated, "application redirected to the identity provider")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Also request {APP_URL}/map with the stored cookies")
	return cmd
}

// probeClient returns a client whose jar holds the stored cookies for appURL.
func probeClient(state *browser.StateFile, appURL string) (*http.Client, error) {
	u, err := url.Parse(appURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing APP_URL")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "cookiejar.New")
	}

	var cookies []*http.Cookie
	for _, c := range state.Cookies() {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
		})
	}
	jar.SetCookies(u, cookies)
	return &http.Client{Jar: jar}, nil
}
