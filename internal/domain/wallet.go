package domain

import "time"

// Wallet is the identity resource the wallet subsystem creates per tenant.
// The core only consumes it as a collaborator; custody internals are out of
// scope.
type Wallet struct {
	ID   string
	Name string

	// Key holds the wallet key in plaintext. For managed wallets it is
	// stored; for wallets that require an external key it is populated
	// only once, on the Wallet returned by Create.
	Key string

	// KeySalt and KeyHash are set instead of Key when the wallet requires
	// an external key. Token issuance then verifies the presented key
	// against them.
	KeySalt []byte
	KeyHash []byte

	// RequiresExternalKey means callers must present the wallet key on
	// every token request.
	RequiresExternalKey bool

	// Innkeeper flags the platform-operator wallet.
	Innkeeper bool

	CreatedAt time.Time
}
