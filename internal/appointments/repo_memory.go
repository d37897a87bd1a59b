package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// MemoryRepo is an in-memory appointment repository for tests and early
// development. It enforces the unique source-call invariant like the
// Postgres implementation does with its partial unique index.
type MemoryRepo struct {
	mu    sync.Mutex
	rows  map[string]Appointment
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]Appointment{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; ok {
		return fault.ErrConflict
	}
	if a.SourceCallID != "" {
		for _, existing := range r.rows {
			if existing.SourceCallID == a.SourceCallID && existing.RescheduledFrom == a.RescheduledFrom {
				return fault.ErrConflict
			}
		}
	}
	r.rows[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return Appointment{}, fault.NotFound("appointment %q", id)
	}
	return a, nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return fault.NotFound("appointment %q", a.ID)
	}
	r.rows[a.ID] = a
	return nil
}

func (r *MemoryRepo) ListActiveByPhone(ctx context.Context, phone string, from time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.rows {
		if a.Phone == phone && a.Status.Active() && !a.ScheduledAt.Before(from) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *MemoryRepo) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.rows {
		if a.ID == excludeID || !a.Status.Active() {
			continue
		}
		if a.ScheduledAt.Before(end) && a.End().After(start) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, id := range r.order {
		a := r.rows[id]
		if f.Phone != "" && a.Phone != f.Phone {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
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
