package appointments

import (
	"context"
	"time"
)

// Repository abstracts appointment persistence.
type Repository interface {
	// Insert creates a row. A duplicate (source_call_id, status-creating)
	// insert returns fault.ErrConflict per the idempotency invariant.
	Insert(ctx context.Context, a Appointment) error
	Get(ctx context.Context, id string) (Appointment, error)
	Update(ctx context.Context, a Appointment) error

	// ListActiveByPhone returns active appointments for the phone number
	// scheduled at or after the given time, soonest first.
	ListActiveByPhone(ctx context.Context, phone string, from time.Time) ([]Appointment, error)

	// ListOverlapping returns active appointments whose slot overlaps
	// [start, end), excluding excludeID.
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Appointment, error)

	List(ctx context.Context, f ListFilter) ([]Appointment, error)
}

type ListFilter struct {
	Phone  string
	Status Status
	Limit  int
	Offset int
}
