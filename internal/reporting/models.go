package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call pipeline metrics.

type CallsSummaryRequest struct {
	Range TimeRange `json:"range"`
}

type CallsSummary struct {
	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	InFlightCalls  int `json:"in_flight_calls"`

	InboundCalls  int `json:"inbound_calls"`
	OutboundCalls int `json:"outbound_calls"`

	// ByIntent counts terminal calls per detected intent.
	ByIntent map[string]int `json:"by_intent"`
	// ByOutcome counts terminal calls per dispatch outcome.
	ByOutcome map[string]int `json:"by_outcome"`
}

// CallbackSummaryRequest requests aggregated callback queue metrics.

type CallbackSummaryRequest struct {
	Range TimeRange `json:"range"`
}

type CallbackSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	TotalAttempts   int     `json:"total_attempts"`
	AverageAttempts float64 `json:"average_attempts"`
}

// AppointmentSummaryRequest requests aggregated appointment metrics.

type AppointmentSummaryRequest struct {
	Range TimeRange `json:"range"`
}

type AppointmentSummary struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Confirmed   int `json:"confirmed"`
	Rescheduled int `json:"rescheduled"`
	Superseded  int `json:"superseded"`
	Cancelled   int `json:"cancelled"`

	CalendarSynced int `json:"calendar_synced"`
}
