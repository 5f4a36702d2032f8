package config

import "strconv"

const retriesVar = "HARNESS_RETRIES"

// Harness carries values the bootstrap client never reads itself. Retrying a
// failed login is the harness's call, never the client's.
type Harness struct {
	profiles Profiles
}

var _ HarnessConfig = Harness{}

func (h Harness) GetRetries() int {
	def := h.profiles.Lookup(GetEnv(environmentVar, DefaultEnvironment)).Retries
	n, err := strconv.Atoi(GetEnv(retriesVar, ""))
	if err != nil || n < 0 {
		return def
	}
	return n
}
