package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: TenantRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TenantRepository)(nil)

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, name, wallet_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.WalletID,
		t.CreatedAt.Format(timeFormat),
		t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet %s already has a tenant: %w", t.WalletID, err)
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT tenant_id, name, wallet_id, created_at, updated_at
		 FROM tenants WHERE tenant_id = ?`, id,
	))
}

func (r *TenantRepository) GetByWalletID(ctx context.Context, walletID string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT tenant_id, name, wallet_id, created_at, updated_at
		 FROM tenants WHERE wallet_id = ?`, walletID,
	))
}

func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_id, name, wallet_id, created_at, updated_at
		 FROM tenants ORDER BY created_at DESC, tenant_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.WalletID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// Delete removes a tenant. Only provisioning compensation uses this;
// reservations referencing the tenant are left untouched as audit records.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE tenant_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

func (r *TenantRepository) scanTenant(row *sql.Row) (domain.Tenant, error) {
	var t domain.Tenant
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Name, &t.WalletID, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
