package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openroost/gatehouse/internal/domain"
)

// Provisioner is the slice of the tenant service that check-in needs:
// create a tenant with its wallet and first token, and undo that when a
// concurrent check-in wins the race.
type Provisioner interface {
	Provision(ctx context.Context, name string) (domain.Tenant, domain.Wallet, string, error)
	Deprovision(ctx context.Context, tenantID, walletID string) error
}

// ReservationService orchestrates the reservation lifecycle: anonymous
// creation, innkeeper approval or rejection, and check-in against the
// one-time password.
type ReservationService struct {
	reservations domain.ReservationRepository
	codec        domain.SecretCodec
	validator    domain.TransitionValidator
	publisher    domain.EventPublisher
	provisioner  Provisioner
}

// NewReservationService creates a service with the given adapters.
func NewReservationService(
	reservations domain.ReservationRepository,
	codec domain.SecretCodec,
	validator domain.TransitionValidator,
	publisher domain.EventPublisher,
	provisioner Provisioner,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		codec:        codec,
		validator:    validator,
		publisher:    publisher,
		provisioner:  provisioner,
	}
}

// Create persists a new reservation in the requested state and publishes a
// creation event. All five request fields must be present.
func (s *ReservationService) Create(ctx context.Context, req domain.ReservationRequest) (domain.Reservation, error) {
	if err := req.Validate(); err != nil {
		return domain.Reservation{}, err
	}

	rec := domain.NewReservation(uuid.NewString(), req)

	if err := s.reservations.Create(ctx, rec); err != nil {
		return domain.Reservation{}, fmt.Errorf("creating reservation: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventRequested, rec); err != nil {
		return domain.Reservation{}, fmt.Errorf("publishing creation event: %w", err)
	}

	return rec, nil
}

// Approve moves a requested reservation to approved and returns the one-time
// plaintext password. The plaintext is returned exactly once; only its salted
// hash is stored. Approving a reservation in any other state fails with a
// TransitionError, so an already-consumed password can never leak a second
// time.
func (s *ReservationService) Approve(ctx context.Context, id string) (string, domain.Reservation, error) {
	rec, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return "", domain.Reservation{}, err
	}

	next, err := s.validator.Apply(ctx, rec.State, domain.EventApprove)
	if err != nil {
		return "", domain.Reservation{}, err
	}

	plaintext, salt, hash, expiry, err := s.codec.Generate()
	if err != nil {
		return "", domain.Reservation{}, fmt.Errorf("generating reservation secret: %w", err)
	}

	rec.TokenSalt = salt
	rec.TokenHash = hash
	rec.TokenExpiry = expiry
	rec.State = next

	// Conditional on the state still being requested: of two concurrent
	// approvals exactly one persists a secret, the loser's plaintext is
	// discarded unreturned.
	if err := s.reservations.UpdateFromState(ctx, rec, domain.StateRequested); err != nil {
		return "", domain.Reservation{}, err
	}

	if err := s.publisher.Publish(ctx, domain.EventApprove, rec); err != nil {
		return "", domain.Reservation{}, fmt.Errorf("publishing approval event: %w", err)
	}

	return plaintext, rec, nil
}

// Reject terminates a requested reservation. The record is kept for audit.
func (s *ReservationService) Reject(ctx context.Context, id string) (domain.Reservation, error) {
	rec, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	next, err := s.validator.Apply(ctx, rec.State, domain.EventReject)
	if err != nil {
		return domain.Reservation{}, err
	}

	rec.State = next

	if err := s.reservations.UpdateFromState(ctx, rec, domain.StateRequested); err != nil {
		return domain.Reservation{}, err
	}

	if err := s.publisher.Publish(ctx, domain.EventReject, rec); err != nil {
		return domain.Reservation{}, fmt.Errorf("publishing rejection event: %w", err)
	}

	return rec, nil
}

// CheckIn redeems an approved reservation's password: it provisions a tenant
// with its wallet and first auth token, then consumes the reservation.
//
// Provisioning and the reservation update form one logical unit. If
// provisioning fails the reservation stays approved and the same password
// remains redeemable. If the conditional update loses to a concurrent
// check-in, the freshly provisioned tenant and wallet are rolled back so only
// the winner's survive.
func (s *ReservationService) CheckIn(ctx context.Context, id, password string) (domain.Tenant, domain.Wallet, string, error) {
	rec, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, domain.Wallet{}, "", err
	}

	next, err := s.validator.Apply(ctx, rec.State, domain.EventCheckIn)
	if err != nil {
		return domain.Tenant{}, domain.Wallet{}, "", err
	}

	if !s.codec.Verify(password, rec.TokenSalt, rec.TokenHash) {
		return domain.Tenant{}, domain.Wallet{}, "", &domain.AuthError{Reason: "reservation password incorrect"}
	}

	if rec.Expired(time.Now().UTC()) {
		return domain.Tenant{}, domain.Wallet{}, "", &domain.ExpiredError{ReservationID: rec.ID, Expiry: rec.TokenExpiry}
	}

	tenant, wallet, token, err := s.provisioner.Provision(ctx, rec.TenantName)
	if err != nil {
		return domain.Tenant{}, domain.Wallet{}, "", fmt.Errorf("provisioning tenant for reservation %s: %w", rec.ID, err)
	}

	rec.State = next
	rec.WalletID = wallet.ID
	rec.TenantID = tenant.ID
	rec.TokenSalt = nil
	rec.TokenHash = nil
	rec.TokenExpiry = time.Time{}

	if err := s.reservations.UpdateFromState(ctx, rec, domain.StateApproved); err != nil {
		if derr := s.provisioner.Deprovision(ctx, tenant.ID, wallet.ID); derr != nil {
			slog.ErrorContext(ctx, "deprovisioning after lost check-in race",
				"reservation_id", rec.ID,
				"tenant_id", tenant.ID,
				"wallet_id", wallet.ID,
				"error", derr,
			)
		}
		return domain.Tenant{}, domain.Wallet{}, "", err
	}

	if err := s.publisher.Publish(ctx, domain.EventCheckIn, rec); err != nil {
		return domain.Tenant{}, domain.Wallet{}, "", fmt.Errorf("publishing check-in event: %w", err)
	}

	return tenant, wallet, token, nil
}

// Get returns a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// List returns all reservations. Innkeeper gating happens at the transport
// layer before this is reached.
func (s *ReservationService) List(ctx context.Context) ([]domain.Reservation, error) {
	return s.reservations.List(ctx)
}
