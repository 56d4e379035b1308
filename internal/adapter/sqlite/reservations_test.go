package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openroost/gatehouse/internal/adapter/sqlite"
	"github.com/openroost/gatehouse/internal/domain"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRequest(name string) domain.ReservationRequest {
	return domain.ReservationRequest{
		TenantName:   name,
		TenantReason: "testing",
		ContactName:  "Ada",
		ContactEmail: "a@acme.test",
		ContactPhone: "555-0100",
	}
}

func mustCreateReservation(t *testing.T, repo *sqlite.ReservationRepository, rec domain.Reservation) {
	t.Helper()
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("mustCreateReservation failed: %v", err)
	}
}

func TestReservations_Create_And_GetByID(t *testing.T) {
	repo := newTestStore(t).Reservations()
	ctx := context.Background()

	rec := domain.NewReservation("r-1", testRequest("Acme"))
	mustCreateReservation(t, repo, rec)

	got, err := repo.GetByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.ID != "r-1" {
		t.Errorf("ID = %q, want %q", got.ID, "r-1")
	}
	if got.TenantName != "Acme" {
		t.Errorf("TenantName = %q, want %q", got.TenantName, "Acme")
	}
	if got.ContactEmail != "a@acme.test" {
		t.Errorf("ContactEmail = %q, want %q", got.ContactEmail, "a@acme.test")
	}
	if got.State != domain.StateRequested {
		t.Errorf("State = %q, want %q", got.State, domain.StateRequested)
	}
	if got.TokenSalt != nil || got.TokenHash != nil || !got.TokenExpiry.IsZero() {
		t.Error("token fields should round-trip as empty")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestReservations_GetByID_NotFound(t *testing.T) {
	repo := newTestStore(t).Reservations()

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestReservations_UpdateFromState_PersistsTokenFields(t *testing.T) {
	repo := newTestStore(t).Reservations()
	ctx := context.Background()

	rec := domain.NewReservation("r-1", testRequest("Acme"))
	mustCreateReservation(t, repo, rec)

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	rec.State = domain.StateApproved
	rec.TokenSalt = []byte{0x01, 0x02}
	rec.TokenHash = []byte{0x03, 0x04}
	rec.TokenExpiry = expiry

	if err := repo.UpdateFromState(ctx, rec, domain.StateRequested); err != nil {
		t.Fatalf("UpdateFromState failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.State != domain.StateApproved {
		t.Errorf("State = %q, want %q", got.State, domain.StateApproved)
	}
	if len(got.TokenSalt) != 2 || len(got.TokenHash) != 2 {
		t.Error("token salt/hash should round-trip")
	}
	if !got.TokenExpiry.Equal(expiry) {
		t.Errorf("TokenExpiry = %v, want %v", got.TokenExpiry, expiry)
	}
}

func TestReservations_UpdateFromState_ClearsTokenFields(t *testing.T) {
	repo := newTestStore(t).Reservations()
	ctx := context.Background()

	rec := domain.NewReservation("r-1", testRequest("Acme"))
	rec.State = domain.StateApproved
	rec.TokenSalt = []byte{0x01}
	rec.TokenHash = []byte{0x02}
	rec.TokenExpiry = time.Now().UTC().Add(time.Hour)
	mustCreateReservation(t, repo, rec)

	rec.State = domain.StateCheckedIn
	rec.TokenSalt = nil
	rec.TokenHash = nil
	rec.TokenExpiry = time.Time{}
	rec.WalletID = "w-1"
	rec.TenantID = "t-1"

	if err := repo.UpdateFromState(ctx, rec, domain.StateApproved); err != nil {
		t.Fatalf("UpdateFromState failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, "r-1")
	if got.TokenSalt != nil || got.TokenHash != nil || !got.TokenExpiry.IsZero() {
		t.Error("token fields should be cleared after check-in")
	}
	if got.WalletID != "w-1" || got.TenantID != "t-1" {
		t.Errorf("wallet/tenant ids = %q/%q, want w-1/t-1", got.WalletID, got.TenantID)
	}
}

func TestReservations_UpdateFromState_RaceLoser(t *testing.T) {
	repo := newTestStore(t).Reservations()
	ctx := context.Background()

	rec := domain.NewReservation("r-1", testRequest("Acme"))
	mustCreateReservation(t, repo, rec)

	first := rec
	first.State = domain.StateApproved
	if err := repo.UpdateFromState(ctx, first, domain.StateRequested); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second writer read the same requested state but the row has moved on.
	second := rec
	second.State = domain.StateRejected
	err := repo.UpdateFromState(ctx, second, domain.StateRequested)

	var stateErr *domain.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if stateErr.Current != domain.StateApproved {
		t.Errorf("Current = %q, want %q", stateErr.Current, domain.StateApproved)
	}
	if stateErr.Expected != domain.StateRequested {
		t.Errorf("Expected = %q, want %q", stateErr.Expected, domain.StateRequested)
	}

	// The loser must not have overwritten the winner.
	got, _ := repo.GetByID(ctx, "r-1")
	if got.State != domain.StateApproved {
		t.Errorf("State = %q, want %q", got.State, domain.StateApproved)
	}
}

func TestReservations_UpdateFromState_NotFound(t *testing.T) {
	repo := newTestStore(t).Reservations()

	rec := domain.NewReservation("nonexistent", testRequest("X"))
	err := repo.UpdateFromState(context.Background(), rec, domain.StateRequested)
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestReservations_List(t *testing.T) {
	repo := newTestStore(t).Reservations()

	for i := range 3 {
		rec := domain.NewReservation(fmt.Sprintf("r-%d", i), testRequest("Acme"))
		mustCreateReservation(t, repo, rec)
	}

	recs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("got %d reservations, want 3", len(recs))
	}
}

func TestReservations_List_StableOrdering(t *testing.T) {
	repo := newTestStore(t).Reservations()

	// Same creation second: the id tiebreak must keep the order stable.
	for _, id := range []string{"r-c", "r-a", "r-b"} {
		mustCreateReservation(t, repo, domain.NewReservation(id, testRequest("Acme")))
	}

	first, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	second, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("list lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("ordering not stable at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}
