package calls

import "time"

// Call represents one logical phone call, keyed by the provider-issued call
// ID. Inbound webhook deliveries are deduplicated against this row; it is
// mutated only by the tracker and the dispatcher.
type Call struct {
	CallID     string    `json:"call_id" db:"call_id"`
	Direction  Direction `json:"direction" db:"direction"`
	Phone      string    `json:"phone_number" db:"phone_number"`
	CustomerID string    `json:"customer_id,omitempty" db:"customer_id"`

	Transcript string            `json:"transcript,omitempty" db:"transcript"`
	Intent     string            `json:"intent,omitempty" db:"intent"`
	Fields     map[string]string `json:"fields,omitempty" db:"-"`

	Status  Status `json:"status" db:"status"`
	Outcome string `json:"outcome,omitempty" db:"outcome"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Status is the call lifecycle. Completed and failed are terminal.
type Status string

const (
	StatusReceived   Status = "received"
	StatusClassified Status = "classified"
	StatusDispatched Status = "dispatched"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
