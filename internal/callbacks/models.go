package callbacks

import "time"

// Callback is one promise to call a customer back. It survives process
// restarts: every state transition is persisted before the side effect it
// gates.
type Callback struct {
	ID         string `json:"id" db:"id"`
	Phone      string `json:"phone_number" db:"phone_number"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`

	Purpose string `json:"purpose" db:"purpose"`
	// Script, when set, overrides the generated call script.
	Script string `json:"script,omitempty" db:"script"`

	// RequestedAt is the earliest time the callback should be placed.
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`

	Status       Status `json:"status" db:"status"`
	AttemptCount int    `json:"attempt_count" db:"attempt_count"`

	// NextAttemptAt gates retry scheduling; the sweep only picks up pending
	// callbacks whose NextAttemptAt is due.
	NextAttemptAt time.Time `json:"next_attempt_at" db:"next_attempt_at"`
	LastError     string    `json:"last_error,omitempty" db:"last_error"`

	// ProviderCallID links the callback to the outbound call once placed.
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	// SourceCallID is the inbound call that requested this callback.
	SourceCallID string `json:"source_call_id,omitempty" db:"source_call_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusClaimed    Status = "claimed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further attempts will be made.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
