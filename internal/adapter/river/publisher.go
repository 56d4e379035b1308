package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries the data needed to process a reservation event
// asynchronously. River serializes this as JSON into its job queue table. It
// snapshots the reservation at publish time so the worker never needs to query
// the database. The one-time password and its hash material are deliberately
// absent: job rows outlive the secrecy window.
type EventJobArgs struct {
	Event         string `json:"event"`
	ReservationID string `json:"reservation_id"`
	TenantName    string `json:"tenant_name"`
	ContactEmail  string `json:"contact_email"`
	State         string `json:"state"`
	WalletID      string `json:"wallet_id,omitempty"`
	TenantID      string `json:"tenant_id,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "reservation.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a reservation event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, rec domain.Reservation) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:         string(event),
		ReservationID: rec.ID,
		TenantName:    rec.TenantName,
		ContactEmail:  rec.ContactEmail,
		State:         string(rec.State),
		WalletID:      rec.WalletID,
		TenantID:      rec.TenantID,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
