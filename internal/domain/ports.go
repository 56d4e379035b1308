package domain

import (
	"context"
	"time"
)

// ReservationRepository defines the persistence contract for reservations.
type ReservationRepository interface {
	Create(ctx context.Context, rec Reservation) error
	GetByID(ctx context.Context, id string) (Reservation, error)
	List(ctx context.Context) ([]Reservation, error)

	// UpdateFromState persists rec only if the stored state still equals
	// from. A concurrent writer that got there first makes it fail with a
	// StateError; an unknown id fails with ErrReservationNotFound.
	UpdateFromState(ctx context.Context, rec Reservation, from State) error
}

// TenantRepository defines the persistence contract for tenants.
// Delete exists only for compensation when provisioning partially fails.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByWalletID(ctx context.Context, walletID string) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Delete(ctx context.Context, id string) error
}

// WalletService is the boundary to the wallet subsystem. The plaintext Key on
// the Wallet returned by Create is available exactly once.
type WalletService interface {
	Create(ctx context.Context, name string) (Wallet, error)
	Get(ctx context.Context, id string) (Wallet, error)
	Delete(ctx context.Context, id string) error

	// IssueToken mints a bearer token bound to the wallet. It fails with
	// an AuthError when the wallet requires an external key and none or a
	// wrong one is presented.
	IssueToken(ctx context.Context, w Wallet, walletKey string) (string, error)
}

// SecretCodec generates and verifies one-time reservation passwords.
type SecretCodec interface {
	// Generate produces a random plaintext password together with the
	// salt, derived hash and expiry to store. The plaintext is never
	// recoverable from the stored fields.
	Generate() (plaintext string, salt, hash []byte, expiry time.Time, err error)

	// Hash derives a fresh salted hash for an existing plaintext.
	Hash(plaintext string) (salt, hash []byte, err error)

	// Verify recomputes the hash and compares in constant time. Malformed
	// input is simply not a match.
	Verify(plaintext string, salt, hash []byte) bool
}

// TransitionValidator checks reservation lifecycle transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current State, event Event) (State, error)
}

// EventPublisher defines the contract for emitting reservation lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, rec Reservation) error
}
