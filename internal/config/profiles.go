package config

import (
	_ "embed"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultEnvironment is used when ENVIRONMENT is unset.
const DefaultEnvironment = "e2e"

const defaultTimeout = 10 * time.Second

//go:embed environments.yaml
var defaultProfilesYAML []byte

// Profile holds the defaults of one named environment.
type Profile struct {
	AuthBaseURL  string        `yaml:"auth_base_url"`
	Realm        string        `yaml:"realm"`
	ClientID     string        `yaml:"client_id"`
	AppURL       string        `yaml:"app_url"`
	CookieDomain string        `yaml:"cookie_domain,omitempty"`
	Username     string        `yaml:"username,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
}

// Profiles maps an environment name to its defaults.
type Profiles map[string]Profile

// Has reports whether name is a known environment.
func (p Profiles) Has(name string) bool {
	_, ok := p[strings.ToLower(name)]
	return ok
}

// Lookup returns the named profile. Unknown names yield an empty profile with
// the default timeout so that callers still get usable bounds.
func (p Profiles) Lookup(name string) Profile {
	profile, ok := p[strings.ToLower(name)]
	if !ok {
		return Profile{Timeout: defaultTimeout}
	}
	return profile
}

// ParseProfiles decodes a YAML profile document.
func ParseProfiles(data []byte) (Profiles, error) {
	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, errors.Wrap(err, "[ParseProfiles] yaml.Unmarshal")
	}
	normalised := make(Profiles, len(profiles))
	for name, profile := range profiles {
		if profile.Timeout <= 0 {
			profile.Timeout = defaultTimeout
		}
		normalised[strings.ToLower(name)] = profile
	}
	return normalised, nil
}

// LoadProfiles returns the built-in profiles merged with the profiles from
// path, if given. A profile in the file replaces the built-in one of the same
// name as a whole.
func LoadProfiles(path string) (Profiles, error) {
	profiles, err := ParseProfiles(defaultProfilesYAML)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadProfiles] reading %s", path)
	}
	overrides, err := ParseProfiles(data)
	if err != nil {
		return nil, err
	}
	for name, profile := range overrides {
		profiles[name] = profile
	}
	return profiles, nil
}
