package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openroost/gatehouse/internal/domain"
)

const tracerName = "github.com/openroost/gatehouse/internal/adapter/otel"

// TracingRepository wraps a domain.ReservationRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and records
// errors. Span attributes carry ids and states only; token material stays out.
type TracingRepository struct {
	next   domain.ReservationRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.ReservationRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, rec domain.Reservation) error {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Create",
		trace.WithAttributes(
			attribute.String("reservation.id", rec.ID),
			attribute.String("reservation.tenant_name", rec.TenantName),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.GetByID",
		trace.WithAttributes(attribute.String("reservation.id", id)),
	)
	defer span.End()

	rec, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rec, err
}

func (r *TracingRepository) List(ctx context.Context) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.List")
	defer span.End()

	recs, err := r.next.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(recs)))
	}
	return recs, err
}

func (r *TracingRepository) UpdateFromState(ctx context.Context, rec domain.Reservation, from domain.State) error {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.UpdateFromState",
		trace.WithAttributes(
			attribute.String("reservation.id", rec.ID),
			attribute.String("reservation.state", string(rec.State)),
			attribute.String("reservation.from_state", string(from)),
		),
	)
	defer span.End()

	err := r.next.UpdateFromState(ctx, rec, from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
