package reporting

import (
	"context"
	"sync"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development.

type MemoryRepo struct {
	mu sync.Mutex

	Calls        []calls.Call
	Callbacks    []callbacks.Callback
	Appointments []appointments.Appointment
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func inRange(at, from, to time.Time) bool {
	if at.IsZero() {
		return true
	}
	return !at.Before(from) && at.Before(to)
}

func (r *MemoryRepo) ListCalls(ctx context.Context, from, to time.Time) ([]calls.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if inRange(c.CreatedAt, from, to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListCallbacks(ctx context.Context, from, to time.Time) ([]callbacks.Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]callbacks.Callback, 0)
	for _, cb := range r.Callbacks {
		if inRange(cb.CreatedAt, from, to) {
			out = append(out, cb)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListAppointments(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]appointments.Appointment, 0)
	for _, a := range r.Appointments {
		if inRange(a.CreatedAt, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}
