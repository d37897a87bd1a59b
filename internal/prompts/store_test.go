package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

func TestRender_SubstitutesVariables(t *testing.T) {
	repo := NewMemoryRepo()
	_ = repo.Insert(context.Background(), Template{
		Name: "greet", Content: "Hello {name}, your {thing} is ready.", Active: true,
	})
	s := NewStore(repo, nil)

	out, err := s.Render(context.Background(), "greet", map[string]string{"name": "Ada", "thing": "order"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "Hello Ada, your order is ready." {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRender_FallsBackToDefaults(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	out, err := s.Render(context.Background(), "intent_classification", map[string]string{"transcript": "hi"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(out, "hi") {
		t.Fatalf("transcript not substituted: %q", out)
	}
	if strings.Contains(out, "{transcript}") {
		t.Fatalf("placeholder left behind: %q", out)
	}
}

func TestRender_UnknownTemplateIsNotFound(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	_, err := s.Render(context.Background(), "no_such_template", nil)
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateUpdateDelete_Lifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	s := NewStore(repo, nil)
	s.clock = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	created, err := s.Create(ctx, "farewell", "Bye {name}.", "closing line")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	if _, err := s.Create(ctx, "farewell", "dup", ""); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("expected validation error on duplicate, got %v", err)
	}

	updated, err := s.Update(ctx, "farewell", "Goodbye {name}.", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	if err := s.Delete(ctx, "farewell"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Render(ctx, "farewell", nil); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDefaultCallbackScript(t *testing.T) {
	out := DefaultCallbackScript("", "your appointment")
	if !strings.Contains(out, "your appointment") {
		t.Fatalf("purpose missing from fallback script: %q", out)
	}
}
