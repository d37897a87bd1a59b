package prompts

import (
	"context"
	"sync"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// MemoryRepo is an in-memory template repository for tests and early
// development.
type MemoryRepo struct {
	mu        sync.Mutex
	templates map[string]Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{templates: map[string]Template{}}
}

func (r *MemoryRepo) GetActive(ctx context.Context, name string) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[name]
	if !ok || !t.Active {
		return Template{}, fault.NotFound("template %q", name)
	}
	return t, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.Name]; !ok {
		return fault.NotFound("template %q", t.Name)
	}
	r.templates[t.Name] = t
	return nil
}

func (r *MemoryRepo) Deactivate(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[name]
	if !ok || !t.Active {
		return fault.NotFound("template %q", name)
	}
	t.Active = false
	r.templates[name] = t
	return nil
}
