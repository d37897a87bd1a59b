package intent

// Intent is the normalized classification of caller purpose. Classification
// always resolves to exactly one value; Unknown is the safe default.
type Intent string

const (
	GeneralQuestion Intent = "general_question"
	BookAppointment Intent = "book_appointment"
	Reschedule      Intent = "reschedule"
	Cancel          Intent = "cancel"
	HumanAgent      Intent = "human_agent"
	Callback        Intent = "callback"
	Unknown         Intent = "unknown"
)

// All lists every member of the closed intent set.
func All() []Intent {
	return []Intent{GeneralQuestion, BookAppointment, Reschedule, Cancel, HumanAgent, Callback, Unknown}
}

// Parse maps a raw string to an Intent, defaulting to Unknown for anything
// outside the closed set. It never fails.
func Parse(raw string) Intent {
	switch Intent(raw) {
	case GeneralQuestion, BookAppointment, Reschedule, Cancel, HumanAgent, Callback, Unknown:
		return Intent(raw)
	default:
		return Unknown
	}
}

// NeedsExtraction reports whether a second model call is made to pull
// structured fields out of the transcript.
func (i Intent) NeedsExtraction() bool {
	switch i {
	case BookAppointment, Reschedule, Cancel:
		return true
	default:
		return false
	}
}
