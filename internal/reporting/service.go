package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should query the immutable record tables (call sessions,
// callbacks, appointments), never mutate them.

type Repository interface {
	ListCalls(ctx context.Context, from, to time.Time) ([]calls.Call, error)
	ListCallbacks(ctx context.Context, from, to time.Time) ([]callbacks.Callback, error)
	ListAppointments(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if !validRange(req.Range) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{ByIntent: map[string]int{}, ByOutcome: map[string]int{}}
	for _, c := range rows {
		out.TotalCalls++
		switch c.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		case calls.DirectionOutbound:
			out.OutboundCalls++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		default:
			out.InFlightCalls++
		}
		if c.Status.Terminal() {
			if c.Intent != "" {
				out.ByIntent[c.Intent]++
			}
			if c.Outcome != "" {
				out.ByOutcome[c.Outcome]++
			}
		}
	}
	return out, nil
}

func (s *Service) CallbackSummary(ctx context.Context, req CallbackSummaryRequest) (CallbackSummary, error) {
	if !validRange(req.Range) {
		return CallbackSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallbackSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCallbacks(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallbackSummary{}, err
	}

	var out CallbackSummary
	for _, cb := range rows {
		out.Total++
		out.TotalAttempts += cb.AttemptCount
		switch cb.Status {
		case callbacks.StatusPending:
			out.Pending++
		case callbacks.StatusClaimed, callbacks.StatusInProgress:
			out.InFlight++
		case callbacks.StatusCompleted:
			out.Completed++
		case callbacks.StatusFailed:
			out.Failed++
		case callbacks.StatusCancelled:
			out.Cancelled++
		}
	}
	if out.Total > 0 {
		out.AverageAttempts = float64(out.TotalAttempts) / float64(out.Total)
	}
	return out, nil
}

func (s *Service) AppointmentSummary(ctx context.Context, req AppointmentSummaryRequest) (AppointmentSummary, error) {
	if !validRange(req.Range) {
		return AppointmentSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return AppointmentSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListAppointments(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return AppointmentSummary{}, err
	}

	var out AppointmentSummary
	for _, a := range rows {
		out.Total++
		if a.CalendarSynced {
			out.CalendarSynced++
		}
		switch a.Status {
		case appointments.StatusPending:
			out.Pending++
		case appointments.StatusConfirmed:
			out.Confirmed++
		case appointments.StatusRescheduled:
			out.Rescheduled++
		case appointments.StatusSuperseded:
			out.Superseded++
		case appointments.StatusCancelled:
			out.Cancelled++
		}
	}
	return out, nil
}
