package config

import (
	"time"

	apperrors "github.com/logineko/wms-e2e-auth/internal/errors"
)

const (
	initiateTimeoutVar     = "AUTH_INITIATE_TIMEOUT"
	authenticateTimeoutVar = "AUTH_AUTHENTICATE_TIMEOUT"
	exchangeTimeoutVar     = "AUTH_EXCHANGE_TIMEOUT"
)

type Timeouts struct {
	profiles Profiles
}

var _ TimeoutConfig = Timeouts{}

func (t Timeouts) GetInitiateTimeout() time.Duration {
	return t.duration(initiateTimeoutVar)
}

func (t Timeouts) GetAuthenticateTimeout() time.Duration {
	return t.duration(authenticateTimeoutVar)
}

func (t Timeouts) GetExchangeTimeout() time.Duration {
	return t.duration(exchangeTimeoutVar)
}

// duration falls back to the profile timeout when the variable is unset or
// malformed; validate reports the malformed case.
func (t Timeouts) duration(envVar string) time.Duration {
	def := t.profiles.Lookup(GetEnv(environmentVar, DefaultEnvironment)).Timeout
	raw := GetEnv(envVar, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (t Timeouts) validate() error {
	for _, envVar := range []string{initiateTimeoutVar, authenticateTimeoutVar, exchangeTimeoutVar} {
		raw := GetEnv(envVar, "")
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s=%q is not a positive duration", envVar, raw)
		}
	}
	return nil
}
