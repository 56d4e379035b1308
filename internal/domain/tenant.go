package domain

import "time"

// Tenant is a provisioned customer organization, bound 1:1 to a wallet.
// Tenants are created exactly once, at check-in time, together with their
// wallet, and are not mutated afterwards.
type Tenant struct {
	ID        string
	Name      string
	WalletID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates a tenant bound to the given wallet.
func NewTenant(id, name, walletID string) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:        id,
		Name:      name,
		WalletID:  walletID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
