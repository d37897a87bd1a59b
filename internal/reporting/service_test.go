package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
)

func TestReporting_CallsSummaryFiltersRange(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Calls = []calls.Call{
		{CallID: "c1", Direction: calls.DirectionInbound, Status: calls.StatusCompleted, Intent: "book_appointment", Outcome: "completed", CreatedAt: now},
		{CallID: "c2", Direction: calls.DirectionInbound, Status: calls.StatusFailed, Intent: "unknown", Outcome: "failed", CreatedAt: now},
		{CallID: "c3", Direction: calls.DirectionOutbound, Status: calls.StatusCompleted, CreatedAt: now.Add(-48 * time.Hour)},
	}
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 2 {
		t.Fatalf("expected 2 calls in range, got %d", out.TotalCalls)
	}
	if out.CompletedCalls != 1 || out.FailedCalls != 1 {
		t.Fatalf("unexpected status counts: %+v", out)
	}
	if out.ByIntent["book_appointment"] != 1 {
		t.Fatalf("unexpected intent counts: %+v", out.ByIntent)
	}
}

func TestReporting_CallbackSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Callbacks = []callbacks.Callback{
		{ID: "cb1", Status: callbacks.StatusPending, AttemptCount: 0, CreatedAt: now},
		{ID: "cb2", Status: callbacks.StatusCompleted, AttemptCount: 1, CreatedAt: now},
		{ID: "cb3", Status: callbacks.StatusFailed, AttemptCount: 3, CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.CallbackSummary(context.Background(), CallbackSummaryRequest{Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Total != 3 || out.Pending != 1 || out.Completed != 1 || out.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", out)
	}
	if out.TotalAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", out.TotalAttempts)
	}
}

func TestReporting_RejectsInvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
