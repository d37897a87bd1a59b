package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adityapallipati/voice-agent/internal/calendar"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/notify"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type stubCalendar struct {
	ref   string
	err   error
	calls int
}

func (c *stubCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	c.calls++
	return c.ref, c.err
}

func newTestService(repo Repository, cal calendar.Client) (*Service, *[]string) {
	var sent []string
	svc := NewService(repo, cal, notify.NotifierFunc(func(ctx context.Context, to, msg string) error {
		sent = append(sent, to+": "+msg)
		return nil
	}))
	svc.clock = func() time.Time { return testNow }
	return svc, &sent
}

func TestBookConfirmsAndSyncsCalendar(t *testing.T) {
	repo := NewMemoryRepo()
	cal := &stubCalendar{ref: "evt-1"}
	svc, sent := newTestService(repo, cal)

	a, err := svc.Book(context.Background(), BookRequest{
		Phone:        "+15551234567",
		ServiceType:  "haircut",
		ScheduledAt:  testNow.Add(24 * time.Hour),
		SourceCallID: "call-1",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("status = %s, want %s", a.Status, StatusConfirmed)
	}
	if !a.CalendarSynced || a.CalendarEventRef != "evt-1" {
		t.Errorf("calendar sync not recorded: synced=%v ref=%q", a.CalendarSynced, a.CalendarEventRef)
	}
	if a.DurationMinutes != defaultDurationMinutes {
		t.Errorf("duration = %d, want default %d", a.DurationMinutes, defaultDurationMinutes)
	}
	if len(*sent) != 1 {
		t.Errorf("expected one confirmation sms, got %d", len(*sent))
	}

	stored, err := repo.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusConfirmed {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestBookRejectsPastTime(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, &stubCalendar{})

	_, err := svc.Book(context.Background(), BookRequest{
		Phone:       "+15551234567",
		ServiceType: "haircut",
		ScheduledAt: testNow.Add(-time.Hour),
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if got, _ := repo.List(context.Background(), ListFilter{Limit: 10}); len(got) != 0 {
		t.Errorf("rejected booking left %d rows", len(got))
	}
}

func TestBookRejectsMissingServiceType(t *testing.T) {
	svc, _ := newTestService(NewMemoryRepo(), &stubCalendar{})

	_, err := svc.Book(context.Background(), BookRequest{
		Phone:       "+15551234567",
		ScheduledAt: testNow.Add(time.Hour),
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestBookSurvivesCalendarOutage(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, &stubCalendar{err: errors.New("calendar down")})

	a, err := svc.Book(context.Background(), BookRequest{
		Phone:       "+15551234567",
		ServiceType: "haircut",
		ScheduledAt: testNow.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed despite calendar failure", a.Status)
	}
	if a.CalendarSynced {
		t.Error("CalendarSynced = true after calendar failure")
	}
}

func TestBookRejectsOverlap(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, &stubCalendar{})

	slot := testNow.Add(24 * time.Hour)
	if _, err := svc.Book(context.Background(), BookRequest{
		Phone: "+15551230001", ServiceType: "haircut", ScheduledAt: slot, SourceCallID: "call-1",
	}); err != nil {
		t.Fatalf("first Book: %v", err)
	}

	_, err := svc.Book(context.Background(), BookRequest{
		Phone: "+15551230002", ServiceType: "haircut", ScheduledAt: slot.Add(15 * time.Minute), SourceCallID: "call-2",
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("overlapping booking err = %v, want validation", err)
	}
}

func TestRescheduleSupersedesOriginal(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, &stubCalendar{ref: "evt-2"})

	orig, err := svc.Book(context.Background(), BookRequest{
		Phone: "+15551234567", ServiceType: "haircut",
		ScheduledAt: testNow.Add(24 * time.Hour), SourceCallID: "call-1",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	moved, err := svc.Reschedule(context.Background(), RescheduleRequest{
		Phone:        "+15551234567",
		NewTime:      testNow.Add(48 * time.Hour),
		SourceCallID: "call-2",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != StatusRescheduled {
		t.Errorf("replacement status = %s, want %s", moved.Status, StatusRescheduled)
	}
	if moved.RescheduledFrom != orig.ID {
		t.Errorf("RescheduledFrom = %q, want %q", moved.RescheduledFrom, orig.ID)
	}

	old, err := repo.Get(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("Get original: %v", err)
	}
	if old.Status != StatusSuperseded {
		t.Errorf("original status = %s, want %s", old.Status, StatusSuperseded)
	}
	if got, _ := repo.List(context.Background(), ListFilter{Limit: 10}); len(got) != 2 {
		t.Errorf("expected 2 rows after reschedule, got %d", len(got))
	}
}

func TestRescheduleAmbiguousWithoutID(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, &stubCalendar{})

	for i, callID := range []string{"call-1", "call-2"} {
		if _, err := svc.Book(context.Background(), BookRequest{
			Phone: "+15551234567", ServiceType: "haircut",
			ScheduledAt:  testNow.Add(time.Duration(24*(i+1)) * time.Hour),
			SourceCallID: callID,
		}); err != nil {
			t.Fatalf("Book %s: %v", callID, err)
		}
	}

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{
		Phone:   "+15551234567",
		NewTime: testNow.Add(72 * time.Hour),
	})
	if !errors.Is(err, fault.ErrAmbiguous) {
		t.Fatalf("err = %v, want ambiguous", err)
	}
}

func TestCancelPreservesRow(t *testing.T) {
	repo := NewMemoryRepo()
	svc, sent := newTestService(repo, &stubCalendar{})

	a, err := svc.Book(context.Background(), BookRequest{
		Phone: "+15551234567", ServiceType: "haircut",
		ScheduledAt: testNow.Add(24 * time.Hour), SourceCallID: "call-1",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), CancelRequest{
		AppointmentID: a.ID,
		Reason:        "customer request",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want %s", cancelled.Status, StatusCancelled)
	}

	stored, err := repo.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("cancelled row was removed: %v", err)
	}
	if stored.Notes != "customer request" {
		t.Errorf("notes = %q", stored.Notes)
	}
	if len(*sent) != 2 {
		t.Errorf("expected booking + cancellation sms, got %d", len(*sent))
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	svc, _ := newTestService(NewMemoryRepo(), &stubCalendar{})

	_, err := svc.Cancel(context.Background(), CancelRequest{Phone: "+15551234567"})
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRepoRejectsDuplicateSourceCall(t *testing.T) {
	repo := NewMemoryRepo()
	a := Appointment{
		ID: "a1", Phone: "+15551234567", ServiceType: "haircut",
		ScheduledAt: testNow.Add(time.Hour), DurationMinutes: 30,
		Status: StatusPending, SourceCallID: "call-1",
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := repo.Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	dup := a
	dup.ID = "a2"
	dup.ScheduledAt = testNow.Add(2 * time.Hour)
	if err := repo.Insert(context.Background(), dup); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("duplicate source call insert err = %v, want conflict", err)
	}
}
