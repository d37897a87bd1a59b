package callbacks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo, "US")
	svc.clock = func() time.Time { return testNow }
	return svc
}

func TestEnqueueDefaultsToNextDay(t *testing.T) {
	svc := newTestService(NewMemoryRepo())

	cb, err := svc.Enqueue(context.Background(), EnqueueRequest{
		Phone:        "(555) 123-4567",
		Purpose:      "pricing question",
		SourceCallID: "call-1",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if cb.Phone != "+15551234567" {
		t.Errorf("phone = %q, want E.164", cb.Phone)
	}
	if cb.Status != StatusPending {
		t.Errorf("status = %s, want pending", cb.Status)
	}
	want := testNow.Add(24 * time.Hour)
	if !cb.RequestedAt.Equal(want) || !cb.NextAttemptAt.Equal(want) {
		t.Errorf("requested_at = %s next_attempt_at = %s, want %s", cb.RequestedAt, cb.NextAttemptAt, want)
	}
}

func TestEnqueueClampsPastTimeToNow(t *testing.T) {
	svc := newTestService(NewMemoryRepo())

	cb, err := svc.Enqueue(context.Background(), EnqueueRequest{
		Phone:       "+15551234567",
		Purpose:     "follow up",
		RequestedAt: testNow.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !cb.NextAttemptAt.Equal(testNow) {
		t.Errorf("next_attempt_at = %s, want clamped to %s", cb.NextAttemptAt, testNow)
	}
}

func TestEnqueueRejectsUndialablePhone(t *testing.T) {
	svc := newTestService(NewMemoryRepo())

	_, err := svc.Enqueue(context.Background(), EnqueueRequest{Phone: "not a number"})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCancelTerminalCallbackRejected(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	cb, err := svc.Enqueue(context.Background(), EnqueueRequest{Phone: "+15551234567", Purpose: "x"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := svc.Cancel(context.Background(), cb.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	if _, err := svc.Cancel(context.Background(), cb.ID); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("second cancel err = %v, want validation", err)
	}
}

func TestClaimSingleWinner(t *testing.T) {
	repo := NewMemoryRepo()
	cb := Callback{
		ID: "cb-1", Phone: "+15551234567", Purpose: "x",
		RequestedAt: testNow, Status: StatusPending, NextAttemptAt: testNow,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := repo.Insert(context.Background(), cb); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	wins := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			ok, err := repo.Claim(context.Background(), "cb-1")
			if err != nil {
				t.Errorf("Claim: %v", err)
			}
			wins <- ok
		}()
	}

	won := 0
	for i := 0; i < 2; i++ {
		if <-wins {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("claim winners = %d, want exactly 1", won)
	}

	got, err := repo.Get(context.Background(), "cb-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusClaimed {
		t.Errorf("status = %s, want claimed", got.Status)
	}
}
