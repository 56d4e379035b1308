package domain

import "time"

// State represents the lifecycle state of a reservation.
type State string

const (
	StateRequested State = "requested"
	StateApproved  State = "approved"
	StateCheckedIn State = "checked_in"
	StateRejected  State = "rejected"
	StateExpired   State = "expired"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	// EventRequested marks reservation creation. It is published to the
	// event queue but never validated as a transition, since requested
	// is the initial state.
	EventRequested Event = "requested"

	EventApprove Event = "approve"
	EventCheckIn Event = "check_in"
	EventReject  Event = "reject"
	EventExpire  Event = "expire"
)

// Transition defines a valid state change: an event moves a reservation from Src to Dst.
type Transition struct {
	Event Event
	Src   State
	Dst   State
}

// Transitions defines all valid state changes in the reservation lifecycle.
// Rejected, expired and checked_in are terminal. This is domain knowledge
// consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventApprove, Src: StateRequested, Dst: StateApproved},
	{Event: EventReject, Src: StateRequested, Dst: StateRejected},
	{Event: EventCheckIn, Src: StateApproved, Dst: StateCheckedIn},
	{Event: EventExpire, Src: StateApproved, Dst: StateExpired},
}

// ReservationRequest carries the caller-supplied fields of a new reservation.
// All five fields are required and immutable after creation.
type ReservationRequest struct {
	TenantName   string
	TenantReason string
	ContactName  string
	ContactEmail string
	ContactPhone string
}

// Validate checks that every request field is present.
func (r ReservationRequest) Validate() error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"tenant_name", r.TenantName},
		{"tenant_reason", r.TenantReason},
		{"contact_name", r.ContactName},
		{"contact_email", r.ContactEmail},
		{"contact_phone", r.ContactPhone},
	} {
		if f.value == "" {
			return &ValidationError{Field: f.name, Reason: "must not be empty"}
		}
	}
	return nil
}

// Reservation is a pending request for a new tenant, gated by innkeeper
// approval and a one-time password. Reservations are retained as audit
// records and never deleted.
type Reservation struct {
	ID           string
	TenantName   string
	TenantReason string
	ContactName  string
	ContactEmail string
	ContactPhone string
	State        State

	// The token fields are all-or-nothing: set together at approval,
	// cleared together at check-in. Only the salted hash of the one-time
	// password is ever stored.
	TokenSalt   []byte
	TokenHash   []byte
	TokenExpiry time.Time

	// Set only after a successful check-in.
	WalletID string
	TenantID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReservation creates a reservation in the initial "requested" state.
func NewReservation(id string, req ReservationRequest) Reservation {
	now := time.Now().UTC()
	return Reservation{
		ID:           id,
		TenantName:   req.TenantName,
		TenantReason: req.TenantReason,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		State:        StateRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Expired reports whether the reservation's one-time password is past its TTL.
// Only an approved reservation can expire; the token fields of every other
// state are empty.
func (r Reservation) Expired(now time.Time) bool {
	return r.State == StateApproved && !r.TokenExpiry.IsZero() && now.After(r.TokenExpiry)
}

// EffectiveState is the state as observed by callers: an approved reservation
// past its token expiry reads as expired. Expiry is computed at read time, not
// stored as a transition.
func (r Reservation) EffectiveState(now time.Time) State {
	if r.Expired(now) {
		return StateExpired
	}
	return r.State
}
