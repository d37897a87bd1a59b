package calls

import (
	"context"
	"time"
)

// Repository abstracts call-session persistence. All status transitions are
// conditional on the current status so a crash mid-operation leaves the row
// in a recoverable prior stage.
type Repository interface {
	// Insert creates the row; a duplicate call ID returns fault.ErrConflict.
	Insert(ctx context.Context, c Call) error
	Get(ctx context.Context, callID string) (Call, error)
	List(ctx context.Context, f ListFilter) ([]Call, error)

	// UpdateStatus transitions callID from one of the expected statuses to
	// next, returning the updated row. A row not in an expected status
	// returns fault.ErrConflict.
	UpdateStatus(ctx context.Context, callID string, expected []Status, next Status, mutate func(*Call)) (Call, error)

	// FailStale marks calls stuck in received/classified older than cutoff
	// as failed, returning how many rows changed.
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
}

type ListFilter struct {
	Status    Status
	Direction Direction
	Limit     int
	Offset    int
}
