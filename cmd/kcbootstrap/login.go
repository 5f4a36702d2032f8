package main

import (
	"fmt"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/harness"
	"github.com/logineko/wms-e2e-auth/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var (
		redirect string
		verifyID bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log the configured test user in and write the storage-state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			state := browser.NewStateFile(flags.stateFile)
			var tokens *bootstrap.TokenSet
			if redirect == "" {
				tokens, err = harness.SetupAuthenticatedSession(cmd.Context(), cfg, state, bootstrap.WithIDTokenVerification(verifyID))
			} else {
				tokens, err = loginTo(cmd, cfg, state, redirect, verifyID)
			}
			if err != nil {
				return err
			}
			if err := state.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s, session written to %s (token type %s, expires in %ds)\n",
				cfg.GetTestUsername(), state.Path(), tokens.TokenType, tokens.ExpiresIn)
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Redirect URI to log in for (default {APP_URL}/map)")
	cmd.Flags().BoolVar(&verifyID, "verify-id-token", false, "Verify the ID token signature against the realm JWKS")
	return cmd
}

func loginTo(cmd *cobra.Command, cfg config.Config, state *browser.StateFile, redirect string, verifyID bool) (*bootstrap.TokenSet, error) {
	client, err := newBootstrapClient(cfg, bootstrap.WithDestination(state), bootstrap.WithIDTokenVerification(verifyID))
	if err != nil {
		return nil, err
	}
	tokens, err := client.Login(cmd.Context(), cfg.GetTestUsername(), cfg.GetTestPassword(), redirect)
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return tokens, nil
}
