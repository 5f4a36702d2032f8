package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned before any request is made when Login or
// Refresh is called with unusable input.
var ErrInvalidArgument = errors.New("invalid argument")

// Stage names the step a failure happened in.
type Stage string

const (
	StageInitiate     Stage = "initiate"
	StageAuthenticate Stage = "authenticate"
	StageExchange     Stage = "exchange"
	StageVerify       Stage = "verify"
	StageInstall      Stage = "install"
	StageRefresh      Stage = "refresh"
)

// Failure is the diagnostic context carried by every typed error: enough to
// understand a failed attempt without running it again.
type Failure struct {
	Stage      Stage
	Endpoint   string // scheme, host and path of the request, no query
	StatusCode int    // zero when no response was received
	Snippet    string // start of the response body
	Err        error  // underlying cause, if any
}

func (f *Failure) describe(reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", f.Stage, reason)
	if f.Endpoint != "" {
		fmt.Fprintf(&b, " (%s", f.Endpoint)
		if f.StatusCode != 0 {
			fmt.Fprintf(&b, " -> %d", f.StatusCode)
		}
		b.WriteString(")")
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	if f.Snippet != "" {
		fmt.Fprintf(&b, "; response: %q", f.Snippet)
	}
	return b.String()
}

// ProtocolError means the provider answered in a shape neither login fork
// expects, or broke the state correlation.
type ProtocolError struct {
	Failure
	Reason   string
	Location string // redirect target, when there was one
}

func (e *ProtocolError) Error() string {
	reason := e.Reason
	if e.Location != "" {
		reason += " [location " + e.Location + "]"
	}
	return e.describe(reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthenticationError means the provider did not issue an authorization code:
// the credentials were rejected or the flow was aborted.
type AuthenticationError struct {
	Failure
	RedirectTarget string // raw redirect target, empty when there was no redirect
}

const authenticationReason = "credentials rejected or flow aborted"

func (e *AuthenticationError) Error() string {
	reason := authenticationReason
	if e.RedirectTarget != "" {
		reason += " [redirect " + e.RedirectTarget + "]"
	}
	return e.describe(reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TokenExchangeError means the token endpoint rejected the grant (expired,
// reused or mismatched code) or its answer could not be used.
type TokenExchangeError struct {
	Failure
	Code        string // OAuth error code, e.g. "invalid_grant"
	Description string
}

func (e *TokenExchangeError) Error() string {
	reason := "token request rejected"
	if e.Code != "" {
		reason += ": " + e.Code
		if e.Description != "" {
			reason += " (" + e.Description + ")"
		}
	}
	return e.describe(reason)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// MissingTokenError means the token endpoint answered successfully without an
// access token. No partial token set is ever returned in that case.
type MissingTokenError struct {
	Failure
	Present []string // token fields the response did carry
}

func (e *MissingTokenError) Error() string {
	reason := "access_token missing from token response"
	if len(e.Present) > 0 {
		reason += " (present: " + strings.Join(e.Present, ", ") + ")"
	}
	return e.describe(reason)
}

func (e *MissingTokenError) Unwrap() error { return e.Err }

// InstallError means the destination context refused the session artifacts.
type InstallError struct {
	Failure
	RolledBack bool // cookies written before the failure were removed again
}

func (e *InstallError) Error() string {
	reason := "writing session artifacts failed"
	if e.RolledBack {
		reason += " (cookies rolled back)"
	}
	return e.describe(reason)
}

func (e *InstallError) Unwrap() error { return e.Err }
