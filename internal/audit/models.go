package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and ip capture are best-effort; do not block call flows on audit failures.
//
// Storage (Postgres):
// - Table audit_log with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated console user causing the event, when
	// one exists. Webhook-driven events have no actor.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	// Prefer X-Forwarded-For processing at the edge; store the resolved client IP here.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	CallID        string `json:"call_id,omitempty" db:"call_id"`
	AppointmentID string `json:"appointment_id,omitempty" db:"appointment_id"`
	CallbackID    string `json:"callback_id,omitempty" db:"callback_id"`
	TemplateName  string `json:"template_name,omitempty" db:"template_name"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallProcessed    EventType = "call_processed"
	EventTypeCallbackSwept    EventType = "callback_swept"
	EventTypePromptChanged    EventType = "prompt_changed"
	EventTypeCallbackCanceled EventType = "callback_cancelled"
	EventTypeAdminAction      EventType = "admin_action"
)
