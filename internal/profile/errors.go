package profile

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrStoreUnavailable = errors.New("profile: store unreachable or transport failure")
	ErrStoreError       = errors.New("profile: store internal error (5xx)")
	ErrBadResponse      = errors.New("profile: invalid response format or malformed data")
	ErrTimeout          = errors.New("profile: request timed out")
	ErrNotFound         = errors.New("profile: no row for user")
	ErrUnknownField     = errors.New("profile: store rejected a requested field")
)

// StoreError wraps the sentinel errors with call context.
type StoreError struct {
	Sentinel  error
	Operation string
	Status    int
	Field     string // the rejected field, for schema drift errors
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("profile: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Sentinel
}

// IsSchemaDrift reports the specific failure that warrants one retry with the
// reduced field set.
func IsSchemaDrift(err error) bool {
	return errors.Is(err, ErrUnknownField)
}
