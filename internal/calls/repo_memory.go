package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// MemoryRepo is an in-memory call repository for tests and early development.
// It applies the same conditional-transition discipline as the Postgres
// implementation.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: map[string]Call{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[c.CallID]; ok {
		return fault.ErrConflict
	}
	r.calls[c.CallID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, fault.NotFound("call %q", callID)
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.calls {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Direction != "" && c.Direction != f.Direction {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
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

func (r *MemoryRepo) UpdateStatus(ctx context.Context, callID string, expected []Status, next Status, mutate func(*Call)) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, fault.NotFound("call %q", callID)
	}
	allowed := false
	for _, s := range expected {
		if c.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return Call{}, fault.ErrConflict
	}
	c.Status = next
	if mutate != nil {
		mutate(&c)
	}
	r.calls[callID] = c
	return c, nil
}

func (r *MemoryRepo) FailStale(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.calls {
		if (c.Status == StatusReceived || c.Status == StatusClassified) && c.UpdatedAt.Before(cutoff) {
			c.Status = StatusFailed
			c.Outcome = "stale"
			c.UpdatedAt = time.Now().UTC()
			r.calls[id] = c
			n++
		}
	}
	return n, nil
}
