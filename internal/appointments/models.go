package appointments

import "time"

// Appointment is one scheduled service visit. Rows are never deleted:
// cancellation and supersession are status transitions, preserving history.
type Appointment struct {
	ID         string `json:"id" db:"id"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`
	Phone      string `json:"phone_number" db:"phone_number"`

	ServiceType     string    `json:"service_type" db:"service_type"`
	ScheduledAt     time.Time `json:"scheduled_at" db:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`

	Status Status `json:"status" db:"status"`
	Notes  string `json:"notes,omitempty" db:"notes"`

	// SourceCallID is the provider call that created this row; unique, so
	// re-dispatching the same call cannot create a duplicate appointment.
	SourceCallID string `json:"source_call_id,omitempty" db:"source_call_id"`

	// RescheduledFrom references the superseded row this one replaced.
	RescheduledFrom string `json:"rescheduled_from,omitempty" db:"rescheduled_from"`

	// CalendarEventRef is empty until the calendar sync succeeds.
	CalendarEventRef string `json:"calendar_event_ref,omitempty" db:"calendar_event_ref"`
	CalendarSynced   bool   `json:"calendar_synced" db:"calendar_synced"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusSuperseded  Status = "superseded"
	StatusCancelled   Status = "cancelled"
)

// Active reports whether the appointment still occupies its time slot.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled:
		return true
	default:
		return false
	}
}

// End is the exclusive end of the appointment's slot.
func (a Appointment) End() time.Time {
	d := a.DurationMinutes
	if d <= 0 {
		d = 30
	}
	return a.ScheduledAt.Add(time.Duration(d) * time.Minute)
}
