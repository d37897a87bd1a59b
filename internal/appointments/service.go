package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adityapallipati/voice-agent/internal/calendar"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/notify"

	"github.com/google/uuid"
)

const defaultDurationMinutes = 30

// Service owns appointment state transitions. Calendar sync and SMS
// confirmations are best-effort side effects: their failure never rolls back
// an appointment change.
type Service struct {
	repo     Repository
	calendar calendar.Client
	notifier notify.Notifier

	calendarTimeout time.Duration
	smsTimeout      time.Duration

	clock func() time.Time
}

func NewService(repo Repository, cal calendar.Client, notifier notify.Notifier) *Service {
	return &Service{
		repo:            repo,
		calendar:        cal,
		notifier:        notifier,
		calendarTimeout: 10 * time.Second,
		smsTimeout:      10 * time.Second,
		clock:           time.Now,
	}
}

type BookRequest struct {
	Phone           string
	CustomerID      string
	ServiceType     string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
	SourceCallID    string
}

// Book creates and confirms a new appointment.
//
// Validation failures (missing service type, past time, slot conflict) are
// surfaced as clarification requests, not crashes.
func (s *Service) Book(ctx context.Context, req BookRequest) (Appointment, error) {
	now := s.clock().UTC()
	if req.ServiceType == "" {
		return Appointment{}, fault.Validation("service_type is required")
	}
	if req.Phone == "" {
		return Appointment{}, fault.Validation("phone_number is required")
	}
	if req.ScheduledAt.IsZero() {
		return Appointment{}, fault.Validation("scheduled time is required")
	}
	if !req.ScheduledAt.After(now) {
		return Appointment{}, fault.Validation("scheduled time %s is in the past", req.ScheduledAt.Format(time.RFC3339))
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = defaultDurationMinutes
	}

	a := Appointment{
		ID:              uuid.NewString(),
		CustomerID:      req.CustomerID,
		Phone:           req.Phone,
		ServiceType:     req.ServiceType,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          StatusPending,
		Notes:           req.Notes,
		SourceCallID:    req.SourceCallID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.checkConflicts(ctx, a.ScheduledAt, a.End(), ""); err != nil {
		return Appointment{}, err
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return Appointment{}, err
	}

	a = s.confirm(ctx, a, StatusConfirmed)
	s.sendConfirmation(ctx, a.Phone, fmt.Sprintf(
		"Your %s appointment is booked for %s.", a.ServiceType, a.ScheduledAt.Format("Mon Jan 2 3:04 PM")))
	return a, nil
}

type RescheduleRequest struct {
	AppointmentID string
	Phone         string
	NewTime       time.Time
	Reason        string
	SourceCallID  string
}

// Reschedule moves an appointment to a new time. The old row is retained
// with status superseded; a new row references it.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (Appointment, error) {
	now := s.clock().UTC()
	if req.NewTime.IsZero() {
		return Appointment{}, fault.Validation("new time is required")
	}
	if !req.NewTime.After(now) {
		return Appointment{}, fault.Validation("new time %s is in the past", req.NewTime.Format(time.RFC3339))
	}

	target, err := s.resolve(ctx, req.AppointmentID, req.Phone)
	if err != nil {
		return Appointment{}, err
	}
	if err := s.checkConflicts(ctx, req.NewTime.UTC(), req.NewTime.UTC().Add(time.Duration(target.DurationMinutes)*time.Minute), target.ID); err != nil {
		return Appointment{}, err
	}

	replacement := Appointment{
		ID:              uuid.NewString(),
		CustomerID:      target.CustomerID,
		Phone:           target.Phone,
		ServiceType:     target.ServiceType,
		ScheduledAt:     req.NewTime.UTC(),
		DurationMinutes: target.DurationMinutes,
		Status:          StatusPending,
		Notes:           appendNote(target.Notes, req.Reason),
		SourceCallID:    req.SourceCallID,
		RescheduledFrom: target.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, replacement); err != nil {
		return Appointment{}, err
	}

	target.Status = StatusSuperseded
	target.UpdatedAt = now
	if err := s.repo.Update(ctx, target); err != nil {
		return Appointment{}, err
	}

	replacement = s.confirm(ctx, replacement, StatusRescheduled)
	s.sendConfirmation(ctx, replacement.Phone, fmt.Sprintf(
		"Your %s appointment was moved to %s.", replacement.ServiceType, replacement.ScheduledAt.Format("Mon Jan 2 3:04 PM")))
	return replacement, nil
}

type CancelRequest struct {
	AppointmentID string
	Phone         string
	Reason        string
}

// Cancel transitions an appointment to cancelled, preserving the row.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (Appointment, error) {
	target, err := s.resolve(ctx, req.AppointmentID, req.Phone)
	if err != nil {
		return Appointment{}, err
	}

	target.Status = StatusCancelled
	target.Notes = appendNote(target.Notes, req.Reason)
	target.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, target); err != nil {
		return Appointment{}, err
	}

	s.sendConfirmation(ctx, target.Phone, fmt.Sprintf(
		"Your %s appointment on %s has been cancelled.", target.ServiceType, target.ScheduledAt.Format("Mon Jan 2 3:04 PM")))
	return target, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	if id == "" {
		return Appointment{}, fault.Validation("appointment id is required")
	}
	return s.repo.Get(ctx, id)
}

// List returns appointments matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

// resolve finds the target appointment: by identifier when present, else the
// nearest upcoming active appointment for the phone number. More than one
// future match without an identifier is an ambiguity requiring human
// handling.
func (s *Service) resolve(ctx context.Context, id, phone string) (Appointment, error) {
	if id != "" {
		a, err := s.repo.Get(ctx, id)
		if err != nil {
			return Appointment{}, err
		}
		if !a.Status.Active() {
			return Appointment{}, fault.Validation("appointment %s is already %s", id, a.Status)
		}
		return a, nil
	}
	if phone == "" {
		return Appointment{}, fault.Validation("appointment id or phone number is required")
	}

	upcoming, err := s.repo.ListActiveByPhone(ctx, phone, s.clock().UTC())
	if err != nil {
		return Appointment{}, err
	}
	switch len(upcoming) {
	case 0:
		return Appointment{}, fault.NotFound("no upcoming appointment for %s", phone)
	case 1:
		return upcoming[0], nil
	default:
		return Appointment{}, fault.Ambiguous("%d upcoming appointments for %s", len(upcoming), phone)
	}
}

func (s *Service) checkConflicts(ctx context.Context, start, end time.Time, excludeID string) error {
	overlapping, err := s.repo.ListOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return fault.Validation("the requested time conflicts with an existing appointment")
	}
	return nil
}

// confirm performs the best-effort calendar sync and lands the appointment
// in its confirmed state. Calendar failure is recorded on the row, not
// propagated.
func (s *Service) confirm(ctx context.Context, a Appointment, confirmed Status) Appointment {
	if s.calendar != nil {
		calCtx, cancel := context.WithTimeout(ctx, s.calendarTimeout)
		ref, err := s.calendar.CreateEvent(calCtx, calendar.Event{
			Start:   a.ScheduledAt,
			End:     a.End(),
			Title:   a.ServiceType,
			Details: fmt.Sprintf("Phone booking for %s", a.Phone),
		})
		cancel()
		if err != nil {
			slog.Warn("calendar sync failed", "appointment_id", a.ID, "err", err)
		} else {
			a.CalendarEventRef = ref
			a.CalendarSynced = true
		}
	}

	a.Status = confirmed
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		slog.Error("appointment confirm update failed", "appointment_id", a.ID, "err", err)
	}
	return a
}

func (s *Service) sendConfirmation(ctx context.Context, phone, message string) {
	if s.notifier == nil || phone == "" {
		return
	}
	smsCtx, cancel := context.WithTimeout(ctx, s.smsTimeout)
	defer cancel()
	if err := s.notifier.Send(smsCtx, phone, message); err != nil {
		slog.Warn("confirmation sms failed", "to", phone, "err", err)
	}
}

func appendNote(notes, extra string) string {
	if extra == "" {
		return notes
	}
	if notes == "" {
		return extra
	}
	return notes + "; " + extra
}
