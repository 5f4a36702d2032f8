package main

import (
	"os"
	"time"

	"github.com/logineko/wms-e2e-auth/bootstrap"
	"github.com/logineko/wms-e2e-auth/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultStateFile = "storage-state.json"

type rootFlags struct {
	logLevel  string
	stateFile string
	quiet     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Headless Keycloak login for warehouse e2e suites",
		Long: `kcbootstrap logs a test user into a Keycloak realm with plain HTTP requests and
writes the resulting session into a Playwright storage-state file, so browser
suites start already authenticated.

Configuration is read from the environment (ENVIRONMENT, AUTH_BASE_URL,
AUTH_REALM, AUTH_CLIENT_ID, APP_URL, TEST_USERNAME, TEST_PASSWORD, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(flags.logLevel); err != nil {
				return err
			}
			if !flags.quiet {
				displayAppname(cmd.ErrOrStderr(), appName)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.stateFile, "state", defaultStateFile, "Storage-state file to write or read")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print the banner")

	root.AddCommand(
		newLoginCmd(flags),
		newRefreshCmd(flags),
		newUserInfoCmd(flags),
		newStatusCmd(flags),
	)
	return root
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	return nil
}

// loadConfig reads the environment configuration and rejects unusable values.
func loadConfig() (config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBootstrapClient(cfg config.Config, opts ...bootstrap.Option) (*bootstrap.Client, error) {
	return bootstrap.NewClient(bootstrap.ConfigFromEnv(cfg), append(opts, bootstrap.WithLogger(log.Logger))...)
}
