package eclass

import (
	"errors"
)

// The failure taxonomy of the portal client. Every error returned by Client wraps
// exactly one of these, callers branch with errors.Is.
var (
	// ErrLoginFailed means wrong credentials, an SSO-only account or an
	// unrecognised login form.
	ErrLoginFailed = errors.New("login failed")
	// ErrAuthExpired means the session was lost in the middle of a scrape.
	ErrAuthExpired = errors.New("session expired")
	// ErrBlocked is a 403 or WAF block that persisted through retries.
	ErrBlocked = errors.New("blocked or forbidden")
	// ErrRateLimited is a 429 that persisted through retries.
	ErrRateLimited = errors.New("rate limited")
	// ErrTemporaryServer is a 5xx that persisted through retries.
	ErrTemporaryServer = errors.New("temporary server error")
	// ErrNetwork is a timeout or connection failure that persisted through retries.
	ErrNetwork = errors.New("network error")
	// ErrClient is any other non-retryable HTTP failure.
	ErrClient = errors.New("client error")
)

const (
	KindLoginFailed     = "LoginFailed"
	KindAuthExpired     = "AuthExpired"
	KindBlocked         = "BlockedOrForbidden"
	KindRateLimited     = "RateLimited"
	KindTemporaryServer = "TemporaryServerError"
	KindNetwork         = "NetworkError"
	KindClient          = "ClientError"
	KindUnexpected      = "Unexpected"
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrLoginFailed, KindLoginFailed},
	{ErrAuthExpired, KindAuthExpired},
	{ErrBlocked, KindBlocked},
	{ErrRateLimited, KindRateLimited},
	{ErrTemporaryServer, KindTemporaryServer},
	{ErrNetwork, KindNetwork},
	{ErrClient, KindClient},
}

// Kind names the taxonomy entry err belongs to, KindUnexpected when it is
// not a portal error at all.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return KindUnexpected
}

// InvalidatesCredentials reports whether err means the stored credentials
// should no longer be trusted.
func InvalidatesCredentials(err error) bool {
	return errors.Is(err, ErrLoginFailed) ||
		errors.Is(err, ErrAuthExpired) ||
		errors.Is(err, ErrBlocked)
}
