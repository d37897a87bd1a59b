package callbacks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// MemoryRepo is an in-memory callback repository for tests and early
// development. Claim holds the repo mutex for the whole check-and-set, giving
// the same winner-takes-it semantics as the Postgres conditional UPDATE.
type MemoryRepo struct {
	mu    sync.Mutex
	rows  map[string]Callback
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]Callback{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, cb Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[cb.ID]; ok {
		return fault.ErrConflict
	}
	r.rows[cb.ID] = cb
	r.order = append(r.order, cb.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.rows[id]
	if !ok {
		return Callback{}, fault.NotFound("callback %q", id)
	}
	return cb, nil
}

func (r *MemoryRepo) Update(ctx context.Context, cb Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[cb.ID]; !ok {
		return fault.NotFound("callback %q", cb.ID)
	}
	r.rows[cb.ID] = cb
	return nil
}

func (r *MemoryRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Callback
	for _, cb := range r.rows {
		if cb.Status == StatusPending && !cb.NextAttemptAt.After(now) {
			out = append(out, cb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Callback
	for _, cb := range r.rows {
		if (cb.Status == StatusClaimed || cb.Status == StatusInProgress) && !cb.UpdatedAt.After(cutoff) {
			out = append(out, cb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.rows[id]
	if !ok {
		return false, fault.NotFound("callback %q", id)
	}
	if cb.Status != StatusPending {
		return false, nil
	}
	cb.Status = StatusClaimed
	cb.UpdatedAt = time.Now().UTC()
	r.rows[id] = cb
	return true, nil
}

func (r *MemoryRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cb := range r.rows {
		if cb.ProviderCallID != "" && cb.ProviderCallID == providerCallID {
			return cb, nil
		}
	}
	return Callback{}, fault.NotFound("callback for provider call %q", providerCallID)
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Callback
	for _, id := range r.order {
		cb := r.rows[id]
		if f.Phone != "" && cb.Phone != f.Phone {
			continue
		}
		if f.Status != "" && cb.Status != f.Status {
			continue
		}
		out = append(out, cb)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
