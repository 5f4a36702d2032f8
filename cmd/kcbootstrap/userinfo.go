package main

import (
	"encoding/json"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/browser"
	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newUserInfoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "userinfo",
		Short: "Print the claims the realm returns for the stored access token",
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
			accessToken, ok := state.LookupItem(bootstrap.StorageAccessToken)
			if !ok || accessToken == "" {
				return errors.Wrapf(apperrors.ErrTokenNotStored, "no %s in %s", bootstrap.StorageAccessToken, state.Path())
			}

			client, err := newBootstrapClient(cfg)
			if err != nil {
				return err
			}
			info, err := client.UserInfo(cmd.Context(), accessToken)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}
