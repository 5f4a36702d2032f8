package config

import "time"

type Config interface {
	EnvConfig
	TimeoutConfig
	HarnessConfig
	Validate() error
}

type EnvConfig interface {
	GetEnvironment() string
	GetAuthBaseURL() string
	GetRealm() string
	GetClientID() string
	GetAppURL() string
	GetCookieDomain() string
	GetTestUsername() string
	GetTestPassword() string
	GetUserAgent() string
}

// TimeoutConfig bounds each network step of a login attempt.
type TimeoutConfig interface {
	GetInitiateTimeout() time.Duration
	GetAuthenticateTimeout() time.Duration
	GetExchangeTimeout() time.Duration
}

// HarnessConfig holds settings read by the surrounding test harness only.
type HarnessConfig interface {
	GetRetries() int
}

type mainConfig struct {
	EnvVars
	Timeouts
	Harness
}

// New loads the environment profiles and returns a Config that resolves each
// value from its environment variable first and the selected profile second.
func New() (Config, error) {
	profiles, err := LoadProfiles(GetEnv(profilesFileVar, ""))
	if err != nil {
		return nil, err
	}
	return NewWithProfiles(profiles), nil
}

// NewWithProfiles builds a Config over an already loaded profile set.
func NewWithProfiles(profiles Profiles) Config {
	return mainConfig{
		EnvVars:  EnvVars{profiles: profiles},
		Timeouts: Timeouts{profiles: profiles},
		Harness:  Harness{profiles: profiles},
	}
}
