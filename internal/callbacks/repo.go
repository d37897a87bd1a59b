package callbacks

import (
	"context"
	"time"
)

// Repository abstracts callback persistence.
//
// Claim is the concurrency primitive: it moves a callback from pending to
// claimed only if it is still pending, so concurrent sweeps cannot both own
// the same callback.
type Repository interface {
	Insert(ctx context.Context, cb Callback) error
	Get(ctx context.Context, id string) (Callback, error)
	Update(ctx context.Context, cb Callback) error

	// ListDue returns pending callbacks whose NextAttemptAt is at or before
	// now, earliest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Callback, error)

	// Claim compare-and-swaps status pending -> claimed. It reports false,
	// without error, when another worker got there first.
	Claim(ctx context.Context, id string) (bool, error)

	// ListStale returns callbacks sitting in claimed or in_progress whose
	// last update is at or before cutoff. Those states are transient; a row
	// parked there belongs to a worker that died mid-attempt.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Callback, error)

	// FindByProviderCallID returns the callback whose outbound call has the
	// given provider identifier.
	FindByProviderCallID(ctx context.Context, providerCallID string) (Callback, error)

	List(ctx context.Context, f ListFilter) ([]Callback, error)
}

type ListFilter struct {
	Phone  string
	Status Status
	Limit  int
	Offset int
}
