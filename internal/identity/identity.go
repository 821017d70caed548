// Package identity resolves the session identity behind a request's
// credentials via the external session backend. Failures are classified, never
// propagated raw: the decision layer only ever sees an Identity.
package identity

type ErrorClass string

const (
	ErrorClassNone           ErrorClass = "none"
	ErrorClassExpectedAbsent ErrorClass = "expected_absent"
	ErrorClassTransient      ErrorClass = "transient"
	ErrorClassFatal          ErrorClass = "fatal"
)

// Identity is the per-request resolution result. It is never cached across
// requests.
type Identity struct {
	Present       bool
	UserID        string
	EmailVerified bool
	ErrorClass    ErrorClass

	// ClearCredentials tells the HTTP layer to expire the session cookies on
	// the response. Set only for fatal resolutions.
	ClearCredentials bool
}
