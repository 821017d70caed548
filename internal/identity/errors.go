package identity

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrBackendUnavailable = errors.New("session: backend unreachable or transport failure")
	ErrBackendError       = errors.New("session: backend internal error (5xx)")
	ErrBadResponse        = errors.New("session: invalid response format or malformed data")
	ErrTimeout            = errors.New("session: request timed out")
	ErrIdentityRejected   = errors.New("session: credentials definitively rejected")
)

// SessionError wraps the sentinel errors with call context.
type SessionError struct {
	Sentinel  error
	Operation string
	Status    int
	Code      string // machine-readable error code from the backend body
	Err       error
}

func (e *SessionError) Error() string {
	msg := fmt.Sprintf("session: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SessionError) Unwrap() error {
	return e.Sentinel
}

// IsTransient reports whether the resolver may retry the call.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrBackendError) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrBadResponse)
}

// IsFatal reports a definitive rejection: the credentials reference an
// identity that cannot be recovered by retrying.
func IsFatal(err error) bool {
	return errors.Is(err, ErrIdentityRejected)
}
