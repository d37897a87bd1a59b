package prompts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Repository abstracts template persistence.
type Repository interface {
	GetActive(ctx context.Context, name string) (Template, error)
	Insert(ctx context.Context, t Template) error
	Update(ctx context.Context, t Template) error
	Deactivate(ctx context.Context, name string) error
}

// ErrNotFound is returned when no active template with the given name exists.
var ErrNotFound = fault.NotFound("prompt template")

const cacheTTL = time.Hour

// Store resolves templates cache-first: Redis, then Postgres, then the
// compiled-in defaults. Writers go through the repository and invalidate
// the cache.
type Store struct {
	repo  Repository
	rdb   *redis.Client
	clock func() time.Time
}

func NewStore(repo Repository, rdb *redis.Client) *Store {
	return &Store{repo: repo, rdb: rdb, clock: time.Now}
}

// Render resolves the named template and substitutes {key} placeholders with
// the given variables. Unknown placeholders are left intact so a template
// typo shows up in the rendered text instead of silently vanishing.
func (s *Store) Render(ctx context.Context, name string, vars map[string]string) (string, error) {
	content, err := s.resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if len(vars) == 0 {
		return content, nil
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(content), nil
}

func (s *Store) resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fault.Validation("template name is required")
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey(name)).Result(); err == nil {
			return cached, nil
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("prompt cache read failed", "name", name, "err", err)
		}
	}

	if s.repo != nil {
		t, err := s.repo.GetActive(ctx, name)
		switch {
		case err == nil:
			s.fillCache(ctx, name, t.Content)
			return t.Content, nil
		case errors.Is(err, fault.ErrNotFound):
			// fall through to defaults
		default:
			slog.Warn("prompt repo read failed", "name", name, "err", err)
		}
	}

	if content, ok := defaultTemplates[name]; ok {
		s.fillCache(ctx, name, content)
		return content, nil
	}
	return "", ErrNotFound
}

func (s *Store) fillCache(ctx context.Context, name, content string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(name), content, cacheTTL).Err(); err != nil {
		slog.Warn("prompt cache write failed", "name", name, "err", err)
	}
}

// Create registers a new template. Name collisions with an active template
// are rejected.
func (s *Store) Create(ctx context.Context, name, content, description string) (Template, error) {
	if name == "" || strings.TrimSpace(content) == "" {
		return Template{}, fault.Validation("name and content are required")
	}
	if s.repo == nil {
		return Template{}, errors.New("prompts: repository not configured")
	}
	if _, err := s.repo.GetActive(ctx, name); err == nil {
		return Template{}, fault.Validation("template %q already exists", name)
	} else if !errors.Is(err, fault.ErrNotFound) {
		return Template{}, err
	}

	now := s.clock().UTC()
	t := Template{
		ID:          uuid.NewString(),
		Name:        name,
		Content:     content,
		Description: description,
		Version:     1,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return Template{}, err
	}
	s.fillCache(ctx, name, content)
	return t, nil
}

// Update replaces the content of an existing template and bumps its version.
func (s *Store) Update(ctx context.Context, name, content, description string) (Template, error) {
	if name == "" || strings.TrimSpace(content) == "" {
		return Template{}, fault.Validation("name and content are required")
	}
	if s.repo == nil {
		return Template{}, errors.New("prompts: repository not configured")
	}
	t, err := s.repo.GetActive(ctx, name)
	if err != nil {
		return Template{}, err
	}
	t.Content = content
	if description != "" {
		t.Description = description
	}
	t.Version++
	t.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return Template{}, err
	}
	s.fillCache(ctx, name, content)
	return t, nil
}

// Delete deactivates a template. Soft delete only; history is preserved.
func (s *Store) Delete(ctx context.Context, name string) error {
	if s.repo == nil {
		return errors.New("prompts: repository not configured")
	}
	if err := s.repo.Deactivate(ctx, name); err != nil {
		return err
	}
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, cacheKey(name)).Err(); err != nil {
			slog.Warn("prompt cache delete failed", "name", name, "err", err)
		}
	}
	return nil
}

// Get returns the active template, without touching the cache.
func (s *Store) Get(ctx context.Context, name string) (Template, error) {
	if s.repo == nil {
		return Template{}, errors.New("prompts: repository not configured")
	}
	return s.repo.GetActive(ctx, name)
}

func cacheKey(name string) string { return "prompt:" + name }
