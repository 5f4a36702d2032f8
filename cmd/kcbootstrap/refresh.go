package main

import (
	"fmt"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	"github.com/logineko/wms-e2e-auth/harness"
	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Redeem the stored refresh token and rewrite the storage-state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := browser.LoadStateFile(flags.stateFile)
			if err != nil {
				return err
			}
			refreshToken, ok := state.LookupItem(bootstrap.StorageRefreshToken)
			if !ok || refreshToken == "" {
				return errors.Wrapf(apperrors.ErrTokenNotStored, "no %s in %s", bootstrap.StorageRefreshToken, state.Path())
			}

			if redirect == "" {
				redirect = cfg.GetAppURL() + harness.MapPath
			}
			client, err := newBootstrapClient(cfg)
			if err != nil {
				return err
			}
			tokens, err := client.Refresh(cmd.Context(), refreshToken)
			if err != nil {
				return err
			}
			if err := client.Install(cmd.Context(), state, tokens, redirect); err != nil {
				return err
			}
			if err := state.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session in %s refreshed (expires in %ds)\n", state.Path(), tokens.ExpiresIn)
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Redirect URI whose origin receives the tokens (default {APP_URL}/map)")
	return cmd
}
