package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openroost/gatehouse/internal/domain"
)

// WalletRepository stores the wallet records managed by the local wallet
// adapter. The plaintext key column stays empty for wallets that require an
// external key; those persist only salt and hash.
type WalletRepository struct {
	db *sql.DB
}

const walletColumns = `wallet_id, name, key, key_salt, key_hash, requires_external_key, innkeeper, created_at`

func (r *WalletRepository) Create(ctx context.Context, w domain.Wallet) error {
	storedKey := w.Key
	if w.RequiresExternalKey {
		// Never persist the plaintext of an externally held key.
		storedKey = ""
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, storedKey, w.KeySalt, w.KeyHash,
		boolToInt(w.RequiresExternalKey), boolToInt(w.Innkeeper),
		w.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id string) (domain.Wallet, error) {
	return r.scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE wallet_id = ?`, id,
	))
}

// GetInnkeeper returns the wallet flagged as the platform operator.
func (r *WalletRepository) GetInnkeeper(ctx context.Context) (domain.Wallet, error) {
	return r.scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE innkeeper = 1 LIMIT 1`,
	))
}

// MarkInnkeeper flags a wallet as the platform operator.
func (r *WalletRepository) MarkInnkeeper(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE wallets SET innkeeper = 1 WHERE wallet_id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("marking innkeeper wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrWalletNotFound
	}

	return nil
}

func (r *WalletRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE wallet_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrWalletNotFound
	}

	return nil
}

func (r *WalletRepository) scanWallet(row *sql.Row) (domain.Wallet, error) {
	var w domain.Wallet
	var requiresKey, innkeeper int
	var createdAt string

	err := row.Scan(&w.ID, &w.Name, &w.Key, &w.KeySalt, &w.KeyHash,
		&requiresKey, &innkeeper, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Wallet{}, domain.ErrWalletNotFound
		}
		return domain.Wallet{}, fmt.Errorf("scanning wallet: %w", err)
	}

	w.RequiresExternalKey = requiresKey == 1
	w.Innkeeper = innkeeper == 1
	w.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	return w, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
