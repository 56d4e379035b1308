package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: ReservationRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*ReservationRepository)(nil)

// ReservationRepository implements domain.ReservationRepository using SQLite.
type ReservationRepository struct {
	db *sql.DB
}

const reservationColumns = `reservation_id, tenant_name, tenant_reason, contact_name,
	contact_email, contact_phone, state, token_salt, token_hash, token_expiry,
	wallet_id, tenant_id, created_at, updated_at`

func (r *ReservationRepository) Create(ctx context.Context, rec domain.Reservation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantName, rec.TenantReason, rec.ContactName,
		rec.ContactEmail, rec.ContactPhone, string(rec.State),
		rec.TokenSalt, rec.TokenHash, formatExpiry(rec.TokenExpiry),
		rec.WalletID, rec.TenantID,
		rec.CreatedAt.Format(timeFormat),
		rec.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	return r.scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = ?`, id,
	))
}

// List returns every reservation, newest first. The id tiebreak keeps the
// ordering stable for rows created in the same second.
func (r *ReservationRepository) List(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 ORDER BY created_at DESC, reservation_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var recs []domain.Reservation
	for rows.Next() {
		rec, err := r.scanReservationFromRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// UpdateFromState persists rec only when the stored state still equals from.
// The WHERE clause makes concurrent approve/check-in races resolve to exactly
// one winner; the loser gets a StateError carrying what the row actually is.
func (r *ReservationRepository) UpdateFromState(ctx context.Context, rec domain.Reservation, from domain.State) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations
		 SET state = ?, token_salt = ?, token_hash = ?, token_expiry = ?,
		     wallet_id = ?, tenant_id = ?, updated_at = ?
		 WHERE reservation_id = ? AND state = ?`,
		string(rec.State), rec.TokenSalt, rec.TokenHash, formatExpiry(rec.TokenExpiry),
		rec.WalletID, rec.TenantID,
		time.Now().UTC().Format(timeFormat),
		rec.ID, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		current, gerr := r.GetByID(ctx, rec.ID)
		if gerr != nil {
			return gerr
		}
		return &domain.StateError{Current: current.State, Expected: from}
	}

	return nil
}

func (r *ReservationRepository) scanReservation(row *sql.Row) (domain.Reservation, error) {
	var rec domain.Reservation
	var state, expiry, createdAt, updatedAt string

	err := row.Scan(&rec.ID, &rec.TenantName, &rec.TenantReason, &rec.ContactName,
		&rec.ContactEmail, &rec.ContactPhone, &state, &rec.TokenSalt, &rec.TokenHash,
		&expiry, &rec.WalletID, &rec.TenantID, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("scanning reservation: %w", err)
	}

	rec.State = domain.State(state)
	rec.TokenExpiry = parseExpiry(expiry)
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return rec, nil
}

func (r *ReservationRepository) scanReservationFromRows(rows *sql.Rows) (domain.Reservation, error) {
	var rec domain.Reservation
	var state, expiry, createdAt, updatedAt string

	err := rows.Scan(&rec.ID, &rec.TenantName, &rec.TenantReason, &rec.ContactName,
		&rec.ContactEmail, &rec.ContactPhone, &state, &rec.TokenSalt, &rec.TokenHash,
		&expiry, &rec.WalletID, &rec.TenantID, &createdAt, &updatedAt)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("scanning reservation row: %w", err)
	}

	rec.State = domain.State(state)
	rec.TokenExpiry = parseExpiry(expiry)
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return rec, nil
}

// formatExpiry stores the zero time as an empty string so that cleared token
// fields round-trip as cleared.
func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
