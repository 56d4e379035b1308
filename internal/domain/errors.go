package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrWalletNotFound      = errors.New("wallet not found")
)

// ValidationError is returned when client-supplied input is missing or malformed.
// No state changes when it is raised.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthError covers a wrong reservation password, a bad or missing wallet key,
// and insufficient privilege. Surfaced to callers as unauthorized.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// TransitionError is returned when an event is not legal for the
// reservation's current state.
type TransitionError struct {
	Event   Event
	Current State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// StateError is returned when a conditional update loses to a concurrent
// writer: the stored state no longer matches what the operation read.
type StateError struct {
	Current  State
	Expected State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("reservation is %q, expected %q", e.Current, e.Expected)
}

// ExpiredError is returned when a reservation's one-time password is past its
// TTL. Kept distinct from AuthError so operators can tell stale requests from
// abuse attempts; callers see both as unauthorized.
type ExpiredError struct {
	ReservationID string
	Expiry        time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("reservation %s expired at %s", e.ReservationID, e.Expiry.Format(time.RFC3339))
}
