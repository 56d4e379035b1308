package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: TenantService satisfies the provisioner slice used by
// the reservation service.
var _ Provisioner = (*TenantService)(nil)

// TenantService provisions tenants with their wallets, reissues auth tokens,
// and serves the innkeeper and self lookups.
type TenantService struct {
	tenants domain.TenantRepository
	wallets domain.WalletService
}

// NewTenantService creates a service with the given adapters.
func NewTenantService(tenants domain.TenantRepository, wallets domain.WalletService) *TenantService {
	return &TenantService{tenants: tenants, wallets: wallets}
}

// Provision creates exactly one wallet, one tenant bound to it, and the
// tenant's first auth token. Partial failure is compensated by deleting
// whatever was already created, so no orphan tenant without a wallet is ever
// observable.
func (s *TenantService) Provision(ctx context.Context, name string) (domain.Tenant, domain.Wallet, string, error) {
	wallet, err := s.wallets.Create(ctx, name)
	if err != nil {
		return domain.Tenant{}, domain.Wallet{}, "", fmt.Errorf("creating wallet: %w", err)
	}

	tenant := domain.NewTenant(uuid.NewString(), name, wallet.ID)

	if err := s.tenants.Create(ctx, tenant); err != nil {
		s.compensate(ctx, "", wallet.ID)
		return domain.Tenant{}, domain.Wallet{}, "", fmt.Errorf("creating tenant: %w", err)
	}

	// The plaintext key is in hand at creation time even when the wallet
	// requires it externally afterwards.
	key := ""
	if wallet.RequiresExternalKey {
		key = wallet.Key
	}

	token, err := s.wallets.IssueToken(ctx, wallet, key)
	if err != nil {
		s.compensate(ctx, tenant.ID, wallet.ID)
		return domain.Tenant{}, domain.Wallet{}, "", fmt.Errorf("issuing initial token: %w", err)
	}

	return tenant, wallet, token, nil
}

// Deprovision removes a tenant and its wallet. Used when a check-in loses the
// conditional-update race after provisioning already ran.
func (s *TenantService) Deprovision(ctx context.Context, tenantID, walletID string) error {
	var errs []error
	if tenantID != "" {
		if err := s.tenants.Delete(ctx, tenantID); err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
			errs = append(errs, fmt.Errorf("deleting tenant %s: %w", tenantID, err))
		}
	}
	if walletID != "" {
		if err := s.wallets.Delete(ctx, walletID); err != nil && !errors.Is(err, domain.ErrWalletNotFound) {
			errs = append(errs, fmt.Errorf("deleting wallet %s: %w", walletID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *TenantService) compensate(ctx context.Context, tenantID, walletID string) {
	if err := s.Deprovision(ctx, tenantID, walletID); err != nil {
		slog.ErrorContext(ctx, "compensating failed provisioning",
			"tenant_id", tenantID,
			"wallet_id", walletID,
			"error", err,
		)
	}
}

// CreateToken reissues an auth token for an existing tenant's wallet.
// Supplying a wallet key to a wallet that does not need one is a
// ValidationError; a wallet that requires one rejects a missing or wrong key
// with an AuthError from the wallet subsystem.
func (s *TenantService) CreateToken(ctx context.Context, tenantID, walletKey string) (string, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	wallet, err := s.wallets.Get(ctx, tenant.WalletID)
	if err != nil {
		return "", err
	}

	if !wallet.RequiresExternalKey && walletKey != "" {
		return "", &domain.ValidationError{
			Field:  "wallet_key",
			Reason: fmt.Sprintf("wallet %s does not require the wallet key to be provided", wallet.ID),
		}
	}

	return s.wallets.IssueToken(ctx, wallet, walletKey)
}

// Get returns a tenant by id. Innkeeper-only at the transport layer.
func (s *TenantService) Get(ctx context.Context, id string) (domain.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// GetByWallet resolves a tenant by its wallet id. Used for self lookup, where
// the wallet id always comes from the caller's own resolved identity, never
// from request input.
func (s *TenantService) GetByWallet(ctx context.Context, walletID string) (domain.Tenant, error) {
	return s.tenants.GetByWalletID(ctx, walletID)
}

// List returns all tenants. Innkeeper-only at the transport layer.
func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.tenants.List(ctx)
}
