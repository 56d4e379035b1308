package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// EventWorker processes reservation event jobs from the River queue. For now
// it logs the event; the contact email in the args is where a notification
// dispatcher would plug in.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing reservation event",
		"event", job.Args.Event,
		"reservation_id", job.Args.ReservationID,
		"state", job.Args.State,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
